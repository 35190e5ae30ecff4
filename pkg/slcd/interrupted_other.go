//go:build !unix

package slcd

func interrupted(err error) bool {
	return false
}
