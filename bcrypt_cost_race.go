//go:build race

package twofactor

import "golang.org/x/crypto/bcrypt"

// Race-enabled builds pay a heavy bcrypt penalty. Drop the work factor so
// test suites can run with strict timeouts.
func init() {
	BcryptCost = bcrypt.DefaultCost
}
