// Package human formats values for people.
package human

import (
	"fmt"
	"math"
)

// Bytes formats b with a decimal unit.
func Bytes(b int64) string {
	if b < 1000 {
		return fmt.Sprintf("%d B", b)
	}
	sizes := []string{"B", "kB", "MB", "GB", "TB"}
	e := math.Floor(math.Log(float64(b)) / math.Log(1000))
	suffix := sizes[int(math.Min(e, float64(len(sizes)-1)))]
	val := float64(b) / math.Pow(1000, math.Min(e, float64(len(sizes)-1)))
	return fmt.Sprintf("%.0f %s", val, suffix)
}
