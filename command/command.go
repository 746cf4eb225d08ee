// Package command renders DTC Initium device commands into their exact ASCII
// wire form.
//
// Every command is a pure formatting function of its parameters, terminated by
// ";\n". Field order, grouping and separators are a compatibility contract
// with the physical hardware and are reproduced byte-for-byte from the
// instrument's command reference. Most commands carry the fixed CRS prefix.
package command

import (
	"fmt"
	"strings"
)

// CRS is the cluster reference selector carried by most commands. The value
// is fixed; the field is present for legacy reasons.
const CRS = 111

// Terminator ends every command string.
const Terminator = ";\n"

// SD1 renders the scanner configuration command. The args string is one
// parenthesized group per scanner group, as produced by scanner.WireArgs:
//
//	SD1 111 (1-8, 64, 1);\n
func SD1(args string) string {
	return fmt.Sprintf("SD1 %d %s%s", CRS, args, Terminator)
}

// SD2 renders the setup table parameter command:
//
//	SD2 111 stbl (nfr 0) (nms msd) (trm scm) ocf;\n
//
// The frame divisor is hardwired to 0, the scale mode scm to 1 and the output
// compensation flag ocf to 2, matching the instrument's documented defaults.
func SD2(stbl, nfr, nms, msd, trm int) string {
	const (
		frd = 0
		scm = 1
		ocf = 2
	)
	return fmt.Sprintf("SD2 %d %d (%d %d) (%d %d) (%d %d) %d%s",
		CRS, stbl, nfr, frd, nms, msd, trm, scm, ocf, Terminator)
}

// SD3 renders the port assignment command for a setup table. Each port
// argument is a port code or port range string (e.g. "101" or "101-164"):
//
//	SD3 111 stbl, p1, p2;\n
func SD3(stbl int, ports ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SD3 %d %d", CRS, stbl)
	for _, p := range ports {
		b.WriteString(", ")
		b.WriteString(p)
	}
	b.WriteString(Terminator)
	return b.String()
}

// SD5 renders the fast acquisition mode command:
//
//	SD5 111 stbl actx;\n
//
// Arming fast mode for all tables is SD5(-1, 0); disarming is SD5(-1, 1).
func SD5(stbl, actx int) string {
	return fmt.Sprintf("SD5 %d %d %d%s", CRS, stbl, actx, Terminator)
}

// PC4 renders the unit/calibration control command. The logical range number
// comes first and there is no CRS field. A non-empty fctr appends the
// optional conversion factor:
//
//	PC4 lrn unx;\n
//	PC4 lrn unx fctr;\n
func PC4(lrn, unx int, fctr string) string {
	if fctr != "" {
		return fmt.Sprintf("PC4 %d %d %s%s", lrn, unx, fctr, Terminator)
	}
	return fmt.Sprintf("PC4 %d %d%s", lrn, unx, Terminator)
}

// CV1 renders the calibration valve control command:
//
//	CV1 valpos puldur;\n
func CV1(valpos, puldur int) string {
	return fmt.Sprintf("CV1 %d %d%s", valpos, puldur, Terminator)
}

// CP1 renders the pulse duration command:
//
//	CP1 puldur;\n
func CP1(puldur int) string {
	return fmt.Sprintf("CP1 %d%s", puldur, Terminator)
}

// CP2 renders the stabilization time command:
//
//	CP2 stbtim;\n
func CP2(stbtim int) string {
	return fmt.Sprintf("CP2 %d%s", stbtim, Terminator)
}

// CA2 renders the zero-calibrate command for a logical range:
//
//	CA2 lrn;\n
func CA2(lrn int) string {
	return fmt.Sprintf("CA2 %d%s", lrn, Terminator)
}

// OP2 renders the offset port delete command. The table id is negated on the
// wire:
//
//	OP2 111 -stbl, p1, p2;\n
func OP2(stbl int, ports ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "OP2 %d -%d", CRS, stbl)
	for _, p := range ports {
		b.WriteString(", ")
		b.WriteString(p)
	}
	b.WriteString(Terminator)
	return b.String()
}

// OP3 renders the offset port insert command:
//
//	OP3 111 stbl, p1, p2;\n
func OP3(stbl int, ports ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "OP3 %d %d", CRS, stbl)
	for _, p := range ports {
		b.WriteString(", ")
		b.WriteString(p)
	}
	b.WriteString(Terminator)
	return b.String()
}

// OP5 renders the offset query command:
//
//	OP5 111 stbl;\n
func OP5(stbl int) string {
	return fmt.Sprintf("OP5 %d %d%s", CRS, stbl, Terminator)
}

// AD0 renders the global acquisition abort command:
//
//	AD0;\n
func AD0() string {
	return "AD0" + Terminator
}

// AD2 renders the acquisition start command for a setup table. A positive nms
// overrides the table's configured message-set count; zero or negative nms
// omits the field:
//
//	AD2 stbl;\n
//	AD2 stbl nms;\n
func AD2(stbl, nms int) string {
	if nms > 0 {
		return fmt.Sprintf("AD2 %d %d%s", stbl, nms, Terminator)
	}
	return fmt.Sprintf("AD2 %d%s", stbl, Terminator)
}

// LA1 renders the latch scan command for a port:
//
//	LA1 111 sport;\n
func LA1(sport string) string {
	return fmt.Sprintf("LA1 %d %s%s", CRS, sport, Terminator)
}

// LA4 renders the latch release command:
//
//	LA4 111;\n
func LA4() string {
	return fmt.Sprintf("LA4 %d%s", CRS, Terminator)
}
