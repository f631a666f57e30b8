package entity

import "fmt"

// FormatReference renders the next reference of a sequence, e.g. PR/00001
func FormatReference(sequence string, next int64) string {
	prefix, ok := sequencePrefixes[sequence]
	if !ok {
		prefix = sequence + "/"
	}
	return fmt.Sprintf("%s%05d", prefix, next)
}
