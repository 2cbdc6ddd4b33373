package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// maxIDAttempts bounds retries when a generated identifier is already taken
const maxIDAttempts = 10

// intnFunc returns a random int in [0, n)
type intnFunc func(n int) int

// newDriveID formats DR-YYYY-MMnnn
func newDriveID(now time.Time, intn intnFunc) string {
	return fmt.Sprintf("DR-%d-%02d%03d", now.Year(), int(now.Month()), 100+intn(900))
}

// newStudentID formats ST-YYMM-nnnn
func newStudentID(now time.Time, intn intnFunc) string {
	return fmt.Sprintf("ST-%02d%02d-%04d", now.Year()%100, int(now.Month()), 1000+intn(9000))
}

// generateUniqueID draws identifiers until exists reports a free one.
// The check runs inside the caller's transaction.
func generateUniqueID(ctx context.Context, generate func() string, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := generate()
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a free identifier after %d attempts", maxIDAttempts)
}

func defaultIntn(n int) int {
	return rand.IntN(n)
}
