package ogc

import (
	"strconv"
	"strings"
)

// ParseVersionList splits a comma separated version list, dropping blanks.
func ParseVersionList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CompareVersions orders dotted versions segment by segment. Missing
// segments count as zero; numeric segments compare as integers and sort
// above non-numeric ones, which compare lexically.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	n := max(len(as), len(bs))
	for i := range n {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := compareSegment(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(x, y string) int {
	xi, xerr := strconv.Atoi(x)
	yi, yerr := strconv.Atoi(y)
	switch {
	case xerr == nil && yerr == nil:
		switch {
		case xi < yi:
			return -1
		case xi > yi:
			return 1
		}
		return 0
	case xerr == nil:
		return 1
	case yerr == nil:
		return -1
	default:
		return strings.Compare(x, y)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Negotiate picks the active protocol version. A client AcceptVersions list
// wins with the highest version both sides support; failing that the
// request's own version is used when the server accepts it, and finally
// the server default.
func Negotiate(clientAccept, requestVersion, serverDefault string, serverAccept []string) string {
	best := ""
	for _, v := range ParseVersionList(clientAccept) {
		if !contains(serverAccept, v) {
			continue
		}
		if best == "" || CompareVersions(v, best) > 0 {
			best = v
		}
	}
	if best != "" {
		return best
	}
	if rv := strings.TrimSpace(requestVersion); rv != "" && contains(serverAccept, rv) {
		return rv
	}
	return serverDefault
}
