package pipeline

import (
	"fmt"
	"strconv"
)

// EventID derives a stable event id from the three 25Live keys so that the
// same reservation maps to the same row on every run.
//
// Each key is zero padded and truncated to its last digits (6, 6 and 5), then
// laid out as itemId*1e9 + itemId2*1e4 + subjectItemId. Distinct source keys
// that share those suffixes collide. That is not detected here.
func EventID(itemID, itemID2, subjectItemID int64) int64 {
	item := lastDigits(itemID, 10, 6)
	item2 := lastDigits(itemID2, 10, 6)
	subject := lastDigits(subjectItemID, 5, 5)
	return item*1_000_000_000 + item2*10_000 + subject
}

func lastDigits(v int64, pad, keep int) int64 {
	if v < 0 {
		v = -v
	}
	s := fmt.Sprintf("%0*d", pad, v)
	s = s[len(s)-keep:]
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
