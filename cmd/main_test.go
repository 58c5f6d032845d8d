package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/repository"
	"github.com/cryptaliagy/iti1121-grading/internal/config"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const fakeCompiler = `#!/bin/sh
if grep -q BROKEN *.java; then
  echo "Lab.java:1: error: ';' expected" >&2
  exit 1
fi
exit 0
`

const fakeRuntime = `#!/bin/sh
echo "Grade for T1 (out of possible 10): 8"
`

const classList = "OrgDefinedId,Username,Last Name,First Name\n" +
	"#1,#asmith,Smith,Alice\n" +
	"#2,#btremblay,Tremblay,Bob\n" +
	"#3,#cwong,Wong,Carol\n"

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatal(err)
	}
}

// fixture lays out a roster, two submissions and a test directory, and
// returns a config pointing at them with fake toolchain binaries.
func fixture(t *testing.T) *config.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	writeFile(t, filepath.Join(bin, "fakejavac"), fakeCompiler, 0o755)
	writeFile(t, filepath.Join(bin, "fakejava"), fakeRuntime, 0o755)

	subs := filepath.Join(dir, "subs")
	writeFile(t, filepath.Join(subs, "1-1 - Alice Smith - May 18, 2025 1224 PM", "Lab.java"), "class Lab {}", 0o644)
	writeFile(t, filepath.Join(subs, "1-2 - Bob Tremblay - May 18, 2025 100 PM", "Lab.java"), "class Lab { BROKEN }", 0o644)
	writeFile(t, filepath.Join(dir, "tests", "LabTest.java"), "class LabTest {}", 0o644)
	writeFile(t, filepath.Join(dir, "list.csv"), classList, 0o644)

	cfg := config.New(context.Background())
	cfg.Submissions = subs
	cfg.GradingList = filepath.Join(dir, "list.csv")
	cfg.TestDir = filepath.Join(dir, "tests")
	cfg.Prefix = "LabTest"
	cfg.Output = filepath.Join(dir, "out.csv")
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.Toolchain.Compiler = filepath.Join(bin, "fakejavac")
	cfg.Toolchain.Runtime = filepath.Join(bin, "fakejava")
	return cfg
}

func TestRunBulk(t *testing.T) {
	Convey("Given a batch with one passing and one broken submission", t, func() {
		cfg := fixture(t)
		cfg.HistoryDB = filepath.Join(filepath.Dir(cfg.Output), "history.db")
		var report bytes.Buffer

		Convey("When the batch is graded", func() {
			err := runBulk(context.Background(), cfg, &report)
			So(err, ShouldBeNil)

			Convey("Then the gradebook has one row per roster entry", func() {
				out, err := os.ReadFile(cfg.Output)
				So(err, ShouldBeNil)
				So(string(out), ShouldStartWith, "OrgDefinedId,Username,Lab Grade,End-of-Line Indicator\n")
				So(string(out), ShouldContainSubstring, "1,asmith,80.000,#")
				So(string(out), ShouldContainSubstring, "2,btremblay,0.000,#")
				So(string(out), ShouldContainSubstring, "3,cwong,0.000,#")
			})

			Convey("Then the report lists failures and missing students", func() {
				So(report.String(), ShouldContainSubstring, "POST-GRADING REPORT")
				So(report.String(), ShouldContainSubstring, "compilation failed")
				So(report.String(), ShouldContainSubstring, "Wong")
			})

			Convey("Then the run is recorded in the history ledger", func() {
				store, err := repository.Open(context.Background(), cfg.HistoryDB)
				So(err, ShouldBeNil)
				defer store.Close()
				runs, err := store.ListRuns(context.Background(), 0)
				So(err, ShouldBeNil)
				So(runs, ShouldHaveLength, 1)
				So(runs[0].Succeeded, ShouldEqual, 1)
				So(runs[0].Failed, ShouldEqual, 1)

				outcomes, err := store.ListOutcomes(context.Background(), runs[0].ID)
				So(err, ShouldBeNil)
				So(outcomes, ShouldHaveLength, 2)
				So(outcomes[1].ErrorKind, ShouldEqual, model.KindCompilationFailure)
			})
		})

		Convey("When submissions are graded concurrently", func() {
			cfg.Concurrency = 2
			So(runBulk(context.Background(), cfg, io.Discard), ShouldBeNil)
			out, err := os.ReadFile(cfg.Output)
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, "1,asmith,80.000,#")
			So(string(out), ShouldContainSubstring, "2,btremblay,0.000,#")
		})

		Convey("When failures are written as null", func() {
			cfg.FailureIsNull = true
			So(runBulk(context.Background(), cfg, io.Discard), ShouldBeNil)
			out, err := os.ReadFile(cfg.Output)
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, "2,btremblay,,#")
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := runBulk(ctx, cfg, io.Discard)
			So(err, ShouldNotBeNil)
			ee, ok := err.(*exitError)
			So(ok, ShouldBeTrue)
			So(ee.code, ShouldEqual, exitInterrupted)

			_, statErr := os.Stat(cfg.Output)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})

		Convey("When the roster is missing", func() {
			cfg.GradingList = filepath.Join(t.TempDir(), "missing.csv")
			So(runBulk(context.Background(), cfg, io.Discard), ShouldNotBeNil)
		})
	})
}

func TestApplyBulkFlags(t *testing.T) {
	Convey("Given command line flags over a loaded config", t, func() {
		cfg := config.New(context.Background())
		cfg.Output = "from-config.csv"
		So(bulkCmd.ParseFlags([]string{
			"-s", "subs.zip", "-g", "list.csv", "-t", "tests", "-p", "TestLab3",
			"-c", "junit.jar", "-c", "lib", "-F", "-G", "5", "-P", "-v", "-j", "4",
		}), ShouldBeNil)

		So(applyBulkFlags(bulkCmd, cfg), ShouldBeNil)

		So(cfg.Submissions, ShouldEqual, "subs.zip")
		So(cfg.GradingList, ShouldEqual, "list.csv")
		So(cfg.TestDir, ShouldEqual, "tests")
		So(cfg.Prefix, ShouldEqual, "TestLab3")
		So(cfg.Toolchain.Classpath, ShouldResemble, []string{"junit.jar", "lib"})
		So(cfg.FailureIsNull, ShouldBeTrue)
		So(cfg.GradeOnly, ShouldEqual, 5)
		So(cfg.Concurrency, ShouldEqual, 4)
		So(cfg.PreprocessPackage, ShouldBeTrue)
		So(cfg.LogLevel, ShouldEqual, "debug")

		Convey("Then unset flags keep the config value", func() {
			So(cfg.Output, ShouldEqual, "from-config.csv")
			So(cfg.AssignmentName, ShouldEqual, "Lab Grade")
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given the root command", t, func() {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(io.Discard)
		defer rootCmd.SetArgs(nil)

		Convey("When version is run", func() {
			rootCmd.SetArgs([]string{"version"})
			So(rootCmd.Execute(), ShouldBeNil)
			So(out.String(), ShouldEqual, "grader (devel)\n")
		})

		Convey("When history is run against a ledger", func() {
			db := filepath.Join(t.TempDir(), "history.db")
			store, err := repository.Open(context.Background(), db)
			So(err, ShouldBeNil)
			So(store.SaveRun(context.Background(), repository.Run{ID: "run-1", Assignment: "Lab 3", Total: 1, Succeeded: 1, Average: 75},
				[]model.GradingOutcome{model.Succeed(model.RosterEntry{Identity: model.NewIdentity("1", "asmith")}, 75, model.ScoreFraction{Earned: 3, Possible: 4}, model.KindNone)}), ShouldBeNil)
			So(store.Close(), ShouldBeNil)

			rootCmd.SetArgs([]string{"history", "--db", db})
			So(rootCmd.Execute(), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "run-1")
			So(out.String(), ShouldContainSubstring, "75.0%")

			out.Reset()
			rootCmd.SetArgs([]string{"history", "--db", db, "run-1"})
			So(rootCmd.Execute(), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "asmith")
			So(out.String(), ShouldContainSubstring, "75.00")
		})

		Convey("When history has no database", func() {
			rootCmd.SetArgs([]string{"history", "--db", ""})
			So(rootCmd.Execute(), ShouldNotBeNil)
		})
	})
}

func TestRunGrade(t *testing.T) {
	Convey("Given a checked-out submission and a test directory", t, func() {
		cfg := fixture(t)
		code := filepath.Join(t.TempDir(), "code")
		writeFile(t, filepath.Join(code, "Lab.java"), "class Lab {}", 0o644)
		var out bytes.Buffer

		Convey("When the submission is graded in place", func() {
			So(runGrade(context.Background(), cfg, code, &out), ShouldBeNil)

			Convey("Then the tests are copied next to the code", func() {
				_, err := os.Stat(filepath.Join(code, "LabTest.java"))
				So(err, ShouldBeNil)
			})

			Convey("Then the output ends with the grade summary", func() {
				So(out.String(), ShouldContainSubstring, "Compilation successful!")
				So(out.String(), ShouldContainSubstring, "Grade for T1 (out of possible 10): 8")
				So(out.String(), ShouldContainSubstring, "Final Grade Summary:")
				So(out.String(), ShouldContainSubstring, "Total Points: 8.0 / 10.0")
				So(out.String(), ShouldContainSubstring, "Percentage: 80.0%")
			})
		})

		Convey("When the code does not compile", func() {
			writeFile(t, filepath.Join(code, "Lab.java"), "class Lab { BROKEN }", 0o644)
			err := runGrade(context.Background(), cfg, code, &out)
			So(err, ShouldNotBeNil)
			ee, ok := err.(*exitError)
			So(ok, ShouldBeTrue)
			So(ee.code, ShouldEqual, 1)
			So(out.String(), ShouldContainSubstring, "';' expected")
			So(out.String(), ShouldNotContainSubstring, "Final Grade Summary:")
		})

		Convey("When the tests exit with a failure status", func() {
			failing := filepath.Join(t.TempDir(), "failjava")
			writeFile(t, failing, "#!/bin/sh\necho partial\nexit 3\n", 0o755)
			cfg.Toolchain.Runtime = failing
			err := runGrade(context.Background(), cfg, code, &out)
			ee, ok := err.(*exitError)
			So(ok, ShouldBeTrue)
			So(ee.code, ShouldEqual, 3)
			So(out.String(), ShouldContainSubstring, "partial")
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := runGrade(ctx, cfg, code, &out)
			ee, ok := err.(*exitError)
			So(ok, ShouldBeTrue)
			So(ee.code, ShouldEqual, exitInterrupted)
		})

		Convey("When the prefix is missing", func() {
			cfg.Prefix = ""
			err := runGrade(context.Background(), cfg, code, &out)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the code directory does not exist", func() {
			So(runGrade(context.Background(), cfg, filepath.Join(code, "missing"), &out), ShouldNotBeNil)
		})
	})
}

func TestApplyGradeFlags(t *testing.T) {
	Convey("Given grade command flags", t, func() {
		cfg := config.New(context.Background())
		So(gradeCmd.ParseFlags([]string{
			"-t", "tests", "-p", "TestLab3", "-c", "student", "--classpath", "junit.jar", "-v",
		}), ShouldBeNil)

		codeDir, err := applyGradeFlags(gradeCmd, cfg)
		So(err, ShouldBeNil)
		So(codeDir, ShouldEqual, "student")
		So(cfg.TestDir, ShouldEqual, "tests")
		So(cfg.Prefix, ShouldEqual, "TestLab3")
		So(cfg.Toolchain.Classpath, ShouldResemble, []string{"junit.jar"})
		So(cfg.LogLevel, ShouldEqual, "debug")
	})
}
