package backup

import "strconv"

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// HumanSize formats a byte count in 1024-based units rounded to two decimals,
// e.g. 512 B, 1.5 KB, 2.25 MB
func HumanSize(bytes int64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	rounded := float64(int64(size*100+0.5)) / 100
	if rounded >= 1024 && unit < len(sizeUnits)-1 {
		rounded = float64(int64(rounded/1024*100+0.5)) / 100
		unit++
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}
