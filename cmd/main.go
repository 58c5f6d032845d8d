// Command grader compiles and runs instructor tests against every student
// submission in an LMS export and writes a gradebook CSV.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("grader: " + err.Error() + "\n")
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
