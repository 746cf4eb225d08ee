// Package scanner models the scanner/port addressing of the DTC Initium.
//
// Up to eight pressure scanners (ids 1..8) can be connected to the frame, each
// with a fixed number of ports. Scanners are configured in groups sharing a
// ports-per-scanner count and a logical range number (lrn). A pressure port is
// addressed by a three-digit port code XYZ where X is the scanner id and YZ is
// the port number within that scanner.
package scanner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSpec indicates a malformed scanner or port specification.
	ErrInvalidSpec = errors.New("invalid scanner specification")

	// ErrScannerNotConfigured indicates a reference to a scanner id that is
	// not part of any configured group.
	ErrScannerNotConfigured = errors.New("scanner not configured")

	// ErrDuplicateScanner indicates that a scanner id appears in more than
	// one group.
	ErrDuplicateScanner = errors.New("scanner listed in more than one group")

	// ErrPortNotValid indicates a port number outside the bounds of its
	// scanner.
	ErrPortNotValid = errors.New("port not valid")

	// ErrDuplicatePort indicates the same port code appearing in more than
	// one of the supplied ranges.
	ErrDuplicatePort = errors.New("repeated ports not supported")
)

// Scanner id bounds and model-wide defaults.
const (
	MinScannerID = 1
	MaxScannerID = 8

	// DefaultNumPorts is the default ports-per-scanner count.
	DefaultNumPorts = 64
	// DefaultLRN is the default logical range number.
	DefaultLRN = 1

	// maxNumPorts keeps port numbers within the two digits of a port code.
	maxNumPorts = 99
)

// Group is one configured scanner group: an ascending run of scanner ids
// sharing a ports-per-scanner count and a logical range number.
type Group struct {
	IDs      []int
	NumPorts int
	LRN      int
}

// GroupSpec describes one group to configure. Scanners is a single id ("3")
// or an inclusive id range ("1-8"). Zero-valued NumPorts and LRN fall back to
// the model-wide defaults.
type GroupSpec struct {
	Scanners string
	NumPorts int
	LRN      int
}

// Scanners holds the configured scanner groups and the derived
// scanner-id → ports-per-scanner map.
type Scanners struct {
	groups []Group
	nports map[int]int
}

type config struct {
	numPorts int
	lrn      int
}

// Option overrides a model-wide default used for group fields the
// specification leaves unset.
type Option func(*config)

// WithNumPorts sets the default ports-per-scanner count.
func WithNumPorts(n int) Option {
	return func(c *config) { c.numPorts = n }
}

// WithLRN sets the default logical range number.
func WithLRN(lrn int) Option {
	return func(c *config) { c.lrn = lrn }
}

// New parses a homogeneous scanner specification: a single scanner id ("3")
// or an inclusive range ("1-8"), with all scanners sharing the default
// ports-per-scanner count and logical range number.
func New(spec string, opts ...Option) (*Scanners, error) {
	return NewGroups([]GroupSpec{{Scanners: spec}}, opts...)
}

// NewGroups parses a heterogeneous list of scanner group specifications.
//
// It builds the scanner → ports-per-scanner map eagerly and returns a
// validation error on a malformed specification, an out-of-range scanner id,
// an out-of-range ports-per-scanner count, or a scanner id appearing in more
// than one group.
func NewGroups(specs []GroupSpec, opts ...Option) (*Scanners, error) {
	cfg := config{numPorts: DefaultNumPorts, lrn: DefaultLRN}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no scanner groups", ErrInvalidSpec)
	}

	s := &Scanners{
		groups: make([]Group, 0, len(specs)),
		nports: make(map[int]int),
	}

	for _, spec := range specs {
		group, err := parseGroup(spec, &cfg)
		if err != nil {
			return nil, err
		}

		for _, id := range group.IDs {
			if _, ok := s.nports[id]; ok {
				return nil, fmt.Errorf("%w: scanner %d", ErrDuplicateScanner, id)
			}
			s.nports[id] = group.NumPorts
		}
		s.groups = append(s.groups, group)
	}

	return s, nil
}

func parseGroup(spec GroupSpec, cfg *config) (Group, error) {
	lo, hi, err := parseRange(spec.Scanners)
	if err != nil {
		return Group{}, err
	}
	if lo < MinScannerID || hi > MaxScannerID || hi < lo {
		return Group{}, fmt.Errorf("%w: scanner range %q outside [%d, %d]",
			ErrInvalidSpec, spec.Scanners, MinScannerID, MaxScannerID)
	}

	npp := spec.NumPorts
	if npp == 0 {
		npp = cfg.numPorts
	}
	if npp < 1 || npp > maxNumPorts {
		return Group{}, fmt.Errorf("%w: %d ports per scanner outside [1, %d]", ErrInvalidSpec, npp, maxNumPorts)
	}

	lrn := spec.LRN
	if lrn == 0 {
		lrn = cfg.lrn
	}
	if lrn < 1 {
		return Group{}, fmt.Errorf("%w: logical range number %d", ErrInvalidSpec, lrn)
	}

	ids := make([]int, 0, hi-lo+1)
	for id := lo; id <= hi; id++ {
		ids = append(ids, id)
	}

	return Group{IDs: ids, NumPorts: npp, LRN: lrn}, nil
}

// parseRange parses "a" or "a-b" into an inclusive integer range.
func parseRange(s string) (lo, hi int, err error) {
	toks := strings.Split(s, "-")
	if len(toks) > 2 {
		return 0, 0, fmt.Errorf("%w: expected 'x' or 'x-y', got %q", ErrInvalidSpec, s)
	}

	lo, err = strconv.Atoi(strings.TrimSpace(toks[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidSpec, toks[0])
	}

	if len(toks) == 1 {
		return lo, lo, nil
	}

	hi, err = strconv.Atoi(strings.TrimSpace(toks[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidSpec, toks[1])
	}

	return lo, hi, nil
}

// ParseWireArgs parses an SD1 argument string — the grammar WireArgs renders —
// back into group specifications:
//
//	(1-2, 64, 1) (3-4, 32, 1)
func ParseWireArgs(args string) ([]GroupSpec, error) {
	var specs []GroupSpec

	rest := strings.TrimSpace(args)
	for rest != "" {
		if !strings.HasPrefix(rest, "(") {
			return nil, fmt.Errorf("%w: expected '(' in %q", ErrInvalidSpec, rest)
		}
		end := strings.Index(rest, ")")
		if end < 0 {
			return nil, fmt.Errorf("%w: unbalanced '(' in %q", ErrInvalidSpec, rest)
		}

		fields := strings.Split(rest[1:end], ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: group %q needs 3 fields", ErrInvalidSpec, rest[:end+1])
		}

		npp, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidSpec, fields[1])
		}
		lrn, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidSpec, fields[2])
		}

		specs = append(specs, GroupSpec{
			Scanners: strings.TrimSpace(fields[0]),
			NumPorts: npp,
			LRN:      lrn,
		})

		rest = strings.TrimSpace(rest[end+1:])
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty wire arguments", ErrInvalidSpec)
	}

	return specs, nil
}

// Groups returns the configured scanner groups in insertion order.
func (s *Scanners) Groups() []Group {
	groups := make([]Group, len(s.groups))
	copy(groups, s.groups)
	return groups
}

// NumPorts returns the ports-per-scanner count for a scanner id and whether
// the scanner is configured.
func (s *Scanners) NumPorts(id int) (int, bool) {
	n, ok := s.nports[id]
	return n, ok
}

// NumScanners returns the total number of configured scanners.
func (s *Scanners) NumScanners() int {
	return len(s.nports)
}

// WireArgs renders the scanner groups as the argument string of the SD1
// command: one parenthesized group per scanner group, in insertion order.
//
//	(1-2, 64, 1) (3-4, 32, 1) (5, 16, 1)
func (s *Scanners) WireArgs() string {
	parts := make([]string, len(s.groups))
	for i, g := range s.groups {
		var rng string
		if len(g.IDs) > 1 {
			rng = fmt.Sprintf("%d-%d", g.IDs[0], g.IDs[len(g.IDs)-1])
		} else {
			rng = strconv.Itoa(g.IDs[0])
		}
		parts[i] = fmt.Sprintf("(%s, %d, %d)", rng, g.NumPorts, g.LRN)
	}
	return strings.Join(parts, " ")
}

// DefaultRanges returns one port range string per configured scanner,
// covering every port: "101-164" for scanner 1 with 64 ports.
func (s *Scanners) DefaultRanges() []string {
	var ranges []string
	for _, g := range s.groups {
		for _, id := range g.IDs {
			ranges = append(ranges, fmt.Sprintf("%d-%d", PortCode(id, 1), PortCode(id, g.NumPorts)))
		}
	}
	return ranges
}
