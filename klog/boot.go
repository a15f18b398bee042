package klog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// bootPrinter renders boot-banner quantities with digit grouping (spec
// §4's "[EXPANSION — supplemented feature] boot log number formatting":
// upgrading the teacher's bare fmt.Printf frame-count banner in
// mem.Phys_init the way a production kernel log would format it).
var bootPrinter = message.NewPrinter(language.English)

// Grouped renders n with thousands separators, e.g. 1048576 -> "1,048,576".
func Grouped(n int64) string {
	return bootPrinter.Sprintf("%v", number.Decimal(n))
}

// BootBanner logs the frame/heap/page-mapping counts a fresh boot produces,
// with every quantity digit-grouped.
func BootBanner(totalFrames int, heapBytes int64, mappedPages int) {
	Infof("memory: %s frames detected, %s bytes heap, %s pages mapped",
		Grouped(int64(totalFrames)), Grouped(heapBytes), Grouped(int64(mappedPages)))
}
