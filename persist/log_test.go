package persist

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	testdir := t.TempDir()
	logFilename := filepath.Join(testdir, "test.log")

	fl, err := NewFileLogger("darve-server v1.0.0", logFilename, false)
	if err != nil {
		t.Fatal(err)
	}

	fl.Println("TEST: this should get written to the logfile")
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}

	validateLogFile(t, logFilename, []string{"STARTUP", "TEST", "SHUTDOWN"})
}

func TestLoggerCritical(t *testing.T) {
	testdir := t.TempDir()
	logFilename := filepath.Join(testdir, "test.log")

	fl, err := NewFileLogger("darve-server v1.0.0", logFilename, false)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("critical message was not thrown in a panic")
		}
		if err := fl.Close(); err != nil {
			t.Fatal(err)
		}
	}()
	fl.Critical("a critical message")
}

func TestVerboseLogger(t *testing.T) {
	testdir := t.TempDir()

	verboseLog := filepath.Join(testdir, "test.log")
	fl, err := NewFileLogger("darve-server v1.0.0", verboseLog, true)
	if err != nil {
		t.Fatal(err)
	}
	fl.Debugln("DEBUGTEST: this should get written to the logfile")
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}
	validateLogFile(t, verboseLog, []string{"STARTUP", "DEBUGTEST", "SHUTDOWN"})

	quietLog := filepath.Join(testdir, "test2.log")
	fl, err = NewFileLogger("darve-server v1.0.0", quietLog, false)
	if err != nil {
		t.Fatal(err)
	}
	fl.Debugln("DEBUGTEST: this should not get written to the logfile")
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := ioutil.ReadFile(quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "DEBUGTEST") {
		t.Error("debug line was written to a non-verbose logger")
	}
}

func validateLogFile(t *testing.T, logFilename string, expectedSubstrings []string) {
	t.Helper()
	data, err := ioutil.ReadFile(logFilename)
	if err != nil {
		t.Fatal(err)
	}
	contents := string(data)
	for _, s := range expectedSubstrings {
		if !strings.Contains(contents, s) {
			t.Errorf("expected log file to contain %q, got:\n%s", s, contents)
		}
	}
}
