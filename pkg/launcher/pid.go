package launcher

import (
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// pidRecord names both processes so a later launcher can tell a stale file
// from a live session and never kills a process it does not own.
type pidRecord struct {
	LauncherPID int `json:"launcher_pid"`
	SclangPID   int `json:"sclang_pid"`
}

func writePIDFile(sclangPID int) error {
	data, err := json.Marshal(pidRecord{LauncherPID: os.Getpid(), SclangPID: sclangPID})
	if err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), data, 0o644)
}

func readPIDFile() (pidRecord, bool) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return pidRecord{}, false
	}
	var rec pidRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return pidRecord{}, false
	}
	return rec, true
}

func removePIDFile() {
	if err := os.Remove(pidFilePath()); err != nil && !os.IsNotExist(err) {
		logger.Println("removing pid file:", err)
	}
}

// sweepOrphans cleans up sclang processes left behind by a crashed launcher:
// whatever a stale pid file names, plus any sclang or scsynth process that
// has been reparented to init.
func sweepOrphans() {
	if rec, ok := readPIDFile(); ok {
		if rec.LauncherPID != os.Getpid() && !processAlive(rec.LauncherPID) && processAlive(rec.SclangPID) {
			logger.Printf("killing orphaned sclang %d left by dead launcher %d",
				rec.SclangPID, rec.LauncherPID)
			killStubborn(rec.SclangPID)
		}
		removePIDFile()
	}
	killReparented("sclang")
	killReparented("scsynth")
}

// killStubborn asks nicely first, then doesn't.
func killStubborn(pid int) {
	terminateProcess(pid)
	time.Sleep(500 * time.Millisecond)
	if processAlive(pid) {
		logger.Printf("process %d ignored SIGTERM, sending SIGKILL", pid)
		killProcess(pid)
	}
}

// killReparented scans the process table for processes of the given name
// whose parent has died (ppid 1) and kills them.
func killReparented(name string) {
	out, err := exec.Command("ps", "-eo", "pid,ppid,comm").Output()
	if err != nil {
		return
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		comm := strings.Join(fields[2:], " ")
		if ppid == 1 && strings.Contains(comm, name) {
			logger.Printf("killing orphaned %s process %d (ppid 1)", name, pid)
			killStubborn(pid)
		}
	}
}
