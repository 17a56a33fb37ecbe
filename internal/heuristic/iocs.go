package heuristic

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s<>]+`)
	ipPattern       = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	winPathPattern  = regexp.MustCompile(`[A-Za-z]:[/\\][^<>"|*?]+`)
	unixPathPattern = regexp.MustCompile(`/[A-Za-z0-9_\-./]+`)
)

// ExtractIOCs pulls URL, IPv4 and file-path indicators out of content.
// Each indicator is tagged with a type prefix. Pure, stateless scan.
func ExtractIOCs(content string) []string {
	var iocs []string

	for _, m := range urlPattern.FindAllString(content, -1) {
		iocs = append(iocs, "URL: "+m)
	}

	for _, m := range ipPattern.FindAllString(content, -1) {
		if validIPv4(m) {
			iocs = append(iocs, "IP: "+m)
		}
	}

	for _, m := range winPathPattern.FindAllString(content, -1) {
		if len(m) > 5 {
			iocs = append(iocs, "Path: "+m)
		}
	}

	for _, m := range unixPathPattern.FindAllString(content, -1) {
		if len(m) > 5 && !strings.HasPrefix(m, "//") {
			iocs = append(iocs, "Path: "+m)
		}
	}

	return iocs
}

// validIPv4 checks each octet independently for the 0-255 range
func validIPv4(ip string) bool {
	for _, octet := range strings.Split(ip, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}
