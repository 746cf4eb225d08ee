package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SingleAndRange(t *testing.T) {
	tests := []struct {
		description string
		spec        string
		opts        []Option
		expectedIDs []int
		expectedNPP int
		expectedLRN int
	}{
		{"range of scanners", "1-8", nil, []int{1, 2, 3, 4, 5, 6, 7, 8}, 64, 1},
		{"single scanner", "1", nil, []int{1}, 64, 1},
		{"single scanner with options", "1", []Option{WithNumPorts(32), WithLRN(2)}, []int{1}, 32, 2},
		{"spaces tolerated", " 2 - 4 ", nil, []int{2, 3, 4}, 64, 1},
	}

	for _, test := range tests {
		s, err := New(test.spec, test.opts...)
		require.NoError(t, err, test.description)

		groups := s.Groups()
		require.Len(t, groups, 1, test.description)
		assert.Equal(t, test.expectedIDs, groups[0].IDs, test.description)
		assert.Equal(t, test.expectedNPP, groups[0].NumPorts, test.description)
		assert.Equal(t, test.expectedLRN, groups[0].LRN, test.description)
	}
}

func TestNewGroups_Heterogeneous(t *testing.T) {
	s, err := NewGroups([]GroupSpec{
		{Scanners: "1-2"},
		{Scanners: "3-4", NumPorts: 32},
		{Scanners: "5", NumPorts: 16},
	})
	require.NoError(t, err)

	expected := map[int]int{1: 64, 2: 64, 3: 32, 4: 32, 5: 16}
	for id, want := range expected {
		n, ok := s.NumPorts(id)
		require.True(t, ok, "scanner %d", id)
		assert.Equal(t, want, n, "scanner %d", id)
	}
	assert.Equal(t, 5, s.NumScanners())

	_, ok := s.NumPorts(6)
	assert.False(t, ok)
}

func TestNewGroups_Validation(t *testing.T) {
	tests := []struct {
		description string
		specs       []GroupSpec
		expectedErr error
	}{
		{"no groups", nil, ErrInvalidSpec},
		{"scanner id zero", []GroupSpec{{Scanners: "0"}}, ErrInvalidSpec},
		{"scanner id above 8", []GroupSpec{{Scanners: "1-9"}}, ErrInvalidSpec},
		{"descending range", []GroupSpec{{Scanners: "4-2"}}, ErrInvalidSpec},
		{"more than one dash", []GroupSpec{{Scanners: "1-2-3"}}, ErrInvalidSpec},
		{"non-integer token", []GroupSpec{{Scanners: "a-b"}}, ErrInvalidSpec},
		{"duplicate scanner across groups", []GroupSpec{{Scanners: "1-4"}, {Scanners: "4-8"}}, ErrDuplicateScanner},
		{"ports per scanner too large", []GroupSpec{{Scanners: "1", NumPorts: 100}}, ErrInvalidSpec},
		{"negative lrn", []GroupSpec{{Scanners: "1", LRN: -1}}, ErrInvalidSpec},
	}

	for _, test := range tests {
		_, err := NewGroups(test.specs)
		assert.ErrorIs(t, err, test.expectedErr, test.description)
	}
}

func TestWireArgs(t *testing.T) {
	s, err := NewGroups([]GroupSpec{
		{Scanners: "1-2"},
		{Scanners: "3-4", NumPorts: 32},
		{Scanners: "5", NumPorts: 16},
	})
	require.NoError(t, err)

	assert.Equal(t, "(1-2, 64, 1) (3-4, 32, 1) (5, 16, 1)", s.WireArgs())

	single, err := New("1-8")
	require.NoError(t, err)
	assert.Equal(t, "(1-8, 64, 1)", single.WireArgs())
}

// TestWireArgs_RoundTrip checks that parsing the rendered SD1 arguments
// yields an equivalent model: same scanner→port-count mapping and the same
// total channel count.
func TestWireArgs_RoundTrip(t *testing.T) {
	require := require.New(t)

	orig, err := NewGroups([]GroupSpec{
		{Scanners: "1-2"},
		{Scanners: "3-4", NumPorts: 32, LRN: 2},
		{Scanners: "5", NumPorts: 16},
	})
	require.NoError(err)

	specs, err := ParseWireArgs(orig.WireArgs())
	require.NoError(err)

	parsed, err := NewGroups(specs)
	require.NoError(err)

	require.Equal(orig.WireArgs(), parsed.WireArgs())
	for id := MinScannerID; id <= MaxScannerID; id++ {
		origN, origOK := orig.NumPorts(id)
		parsedN, parsedOK := parsed.NumPorts(id)
		require.Equal(origOK, parsedOK, "scanner %d", id)
		require.Equal(origN, parsedN, "scanner %d", id)
	}

	origCount, err := orig.CountPorts(orig.DefaultRanges()...)
	require.NoError(err)
	parsedCount, err := parsed.CountPorts(parsed.DefaultRanges()...)
	require.NoError(err)
	require.Equal(origCount, parsedCount)
}

func TestParseWireArgs_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1-2, 64, 1",
		"(1-2, 64, 1",
		"(1-2, 64)",
		"(1-2, sixty, 1)",
		"(1-2, 64, one)",
	}

	for _, args := range tests {
		_, err := ParseWireArgs(args)
		assert.ErrorIs(t, err, ErrInvalidSpec, "args %q", args)
	}
}

func TestDefaultRanges(t *testing.T) {
	s, err := New("1", WithNumPorts(16))
	require.NoError(t, err)
	assert.Equal(t, []string{"101-116"}, s.DefaultRanges())

	s, err = NewGroups([]GroupSpec{
		{Scanners: "1-2"},
		{Scanners: "3", NumPorts: 16},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"101-164", "201-264", "301-316"}, s.DefaultRanges())
}

func TestExpandPorts(t *testing.T) {
	s, err := New("1-3")
	require.NoError(t, err)

	ports, err := s.ExpandPorts("101-102", "201-201", "301-302")
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 201, 301, 302}, ports)
}

func TestExpandPorts_CrossScanner(t *testing.T) {
	s, err := New("1-3", WithNumPorts(4))
	require.NoError(t, err)

	// Fill from the start port to the end of scanner 1, all of scanner 2,
	// then ports 1..2 of scanner 3.
	ports, err := s.ExpandPorts("103-302")
	require.NoError(t, err)
	assert.Equal(t, []int{103, 104, 201, 202, 203, 204, 301, 302}, ports)
}

func TestExpandPorts_SinglePort(t *testing.T) {
	s, err := New("1-2")
	require.NoError(t, err)

	ports, err := s.ExpandPorts("164")
	require.NoError(t, err)
	assert.Equal(t, []int{164}, ports)
}

func TestExpandPorts_Validation(t *testing.T) {
	s, err := New("1-2", WithNumPorts(16))
	require.NoError(t, err)

	tests := []struct {
		description string
		ranges      []string
		expectedErr error
	}{
		{"duplicate across ranges", []string{"101-103", "102"}, ErrDuplicatePort},
		{"duplicate exact range", []string{"101-102", "101-102"}, ErrDuplicatePort},
		{"unconfigured scanner", []string{"301-302"}, ErrScannerNotConfigured},
		{"range into unconfigured scanner", []string{"101-302"}, ErrScannerNotConfigured},
		{"port above scanner bounds", []string{"117"}, ErrPortNotValid},
		{"port zero", []string{"100"}, ErrPortNotValid},
		{"range end above bounds", []string{"101-217"}, ErrPortNotValid},
		{"descending range", []string{"105-103"}, ErrInvalidSpec},
		{"malformed token", []string{"1a1"}, ErrPortNotValid},
		{"too many dashes", []string{"101-102-103"}, ErrInvalidSpec},
		{"short token", []string{"11"}, ErrPortNotValid},
	}

	for _, test := range tests {
		_, err := s.ExpandPorts(test.ranges...)
		assert.ErrorIs(t, err, test.expectedErr, test.description)
	}
}

// TestCountPorts_MatchesExpand checks the arithmetic count against the
// materialized expansion for a spread of range shapes.
func TestCountPorts_MatchesExpand(t *testing.T) {
	s, err := NewGroups([]GroupSpec{
		{Scanners: "1-2"},
		{Scanners: "3-4", NumPorts: 32},
		{Scanners: "5", NumPorts: 16},
	})
	require.NoError(t, err)

	tests := [][]string{
		{"101-164"},
		{"101"},
		{"101-102", "201-201", "301-302"},
		{"132-302"},
		{"101-516"},
		s.DefaultRanges(),
	}

	for _, ranges := range tests {
		ports, err := s.ExpandPorts(ranges...)
		require.NoError(t, err, "ranges %v", ranges)

		n, err := s.CountPorts(ranges...)
		require.NoError(t, err, "ranges %v", ranges)
		assert.Equal(t, len(ports), n, "ranges %v", ranges)
	}
}

func TestSplitPort(t *testing.T) {
	sc, p, err := SplitPort("164")
	require.NoError(t, err)
	assert.Equal(t, 1, sc)
	assert.Equal(t, 64, p)

	_, _, err = SplitPort("1")
	assert.ErrorIs(t, err, ErrPortNotValid)

	_, _, err = SplitPort("abc")
	assert.ErrorIs(t, err, ErrPortNotValid)
}

func TestPortCode(t *testing.T) {
	assert.Equal(t, 101, PortCode(1, 1))
	assert.Equal(t, 864, PortCode(8, 64))
}
