package database

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MaxErrorLength caps messages stored in import results
const MaxErrorLength = 200

// DescribeError renders a database error for reports, using "[code] message"
// for MySQL server errors
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("[%d] %s", myErr.Number, myErr.Message)
	}
	return err.Error()
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
