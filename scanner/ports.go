package scanner

import (
	"fmt"
	"strconv"
	"strings"
)

// PortCode builds the integer port code scanner*100 + port.
func PortCode(scannerID, port int) int {
	return scannerID*100 + port
}

// SplitPort breaks a three-digit port code string into its scanner id and
// port number. "164" yields (1, 64).
func SplitPort(s string) (scannerID, port int, err error) {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return 0, 0, fmt.Errorf("%w: port %q", ErrPortNotValid, s)
	}

	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: port %q is not an integer", ErrPortNotValid, s)
	}

	return code / 100, code % 100, nil
}

// ExpandPorts validates and expands port range strings into the full ascending
// list of individual port codes.
//
// Each range is a single port code "XYZ" or a range "XYZ-XYZ". A range across
// scanner boundaries fills from the start port to the last valid port of the
// first scanner, every port of the intermediate scanners, and ports 1..end of
// the last scanner:
//
//	ExpandPorts("101-102", "201-201", "301-302") // [101 102 201 301 302]
//
// It returns a validation error on an unconfigured scanner, a port outside
// the scanner's bounds, a malformed token, or a port code repeated across
// the supplied ranges.
func (s *Scanners) ExpandPorts(ranges ...string) ([]int, error) {
	var ports []int
	seen := make(map[int]struct{})

	for _, r := range ranges {
		expanded, err := s.expandRange(r)
		if err != nil {
			return nil, err
		}
		for _, p := range expanded {
			if _, ok := seen[p]; ok {
				return nil, fmt.Errorf("%w: port %d", ErrDuplicatePort, p)
			}
			seen[p] = struct{}{}
		}
		ports = append(ports, expanded...)
	}

	return ports, nil
}

// CountPorts returns the total number of ports the given ranges expand to,
// with the same per-range validation as ExpandPorts but without materializing
// the port list. Duplicates across ranges are not detected; use ExpandPorts
// when the channel identities matter.
func (s *Scanners) CountPorts(ranges ...string) (int, error) {
	total := 0
	for _, r := range ranges {
		n, err := s.countRange(r)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// parsePortRange splits a port range string into validated
// (scanner, port) endpoints. A single port yields identical endpoints.
func (s *Scanners) parsePortRange(r string) (s1, p1, s2, p2 int, err error) {
	toks := strings.Split(r, "-")
	if len(toks) > 2 {
		return 0, 0, 0, 0, fmt.Errorf("%w: port range %q", ErrInvalidSpec, r)
	}

	s1, p1, err = SplitPort(toks[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}

	if len(toks) == 1 {
		s2, p2 = s1, p1
	} else {
		s2, p2, err = SplitPort(toks[1])
		if err != nil {
			return 0, 0, 0, 0, err
		}
	}

	if s2 < s1 || (s1 == s2 && p2 < p1) {
		return 0, 0, 0, 0, fmt.Errorf("%w: descending port range %q", ErrInvalidSpec, r)
	}

	for id := s1; id <= s2; id++ {
		if _, ok := s.nports[id]; !ok {
			return 0, 0, 0, 0, fmt.Errorf("%w: scanner %d", ErrScannerNotConfigured, id)
		}
	}

	if p1 < 1 || p1 > s.nports[s1] {
		return 0, 0, 0, 0, fmt.Errorf("%w: port %d on scanner %d", ErrPortNotValid, p1, s1)
	}
	if p2 < 1 || p2 > s.nports[s2] {
		return 0, 0, 0, 0, fmt.Errorf("%w: port %d on scanner %d", ErrPortNotValid, p2, s2)
	}

	return s1, p1, s2, p2, nil
}

func (s *Scanners) expandRange(r string) ([]int, error) {
	s1, p1, s2, p2, err := s.parsePortRange(r)
	if err != nil {
		return nil, err
	}

	if s1 == s2 {
		ports := make([]int, 0, p2-p1+1)
		for p := p1; p <= p2; p++ {
			ports = append(ports, PortCode(s1, p))
		}
		return ports, nil
	}

	var ports []int
	for p := p1; p <= s.nports[s1]; p++ {
		ports = append(ports, PortCode(s1, p))
	}
	for id := s1 + 1; id < s2; id++ {
		for p := 1; p <= s.nports[id]; p++ {
			ports = append(ports, PortCode(id, p))
		}
	}
	for p := 1; p <= p2; p++ {
		ports = append(ports, PortCode(s2, p))
	}

	return ports, nil
}

func (s *Scanners) countRange(r string) (int, error) {
	s1, p1, s2, p2, err := s.parsePortRange(r)
	if err != nil {
		return 0, err
	}

	n := 0
	for id := s1; id <= s2; id++ {
		n += s.nports[id]
	}
	n -= p1 - 1
	n -= s.nports[s2] - p2

	return n, nil
}
