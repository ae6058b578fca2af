// Package jobinfo parses the job region of a log (spec §3's job header:
// exe, uid, jobid, start/end time, nprocs, plus free-form metadata).
// The on-disk shape is this reimplementation's own (no upstream binary
// format was available to mirror): one "key: value" line per fixed
// field, followed by zero or more "metadata: KEY = VALUE" lines split
// on the first "=" only, exactly as spec §6 describes the stdout
// contract that re-emits them.
package jobinfo

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Metadata is one free-form job annotation.
type Metadata struct {
	Key   string
	Value string
}

// Mount is one row of the log's mount table ("mount: <path>\t<fs_type>"
// lines in the job region).
type Mount struct {
	Path   string
	FSType string
}

// Info is the parsed job region.
type Info struct {
	Exe       string
	UID       int64
	JobID     string
	StartTime time.Time
	EndTime   time.Time
	NProcs    int64
	Metadata  []Metadata
	Mounts    []Mount
}

// Parse reads Info from the job region's decompressed stream.
func Parse(r io.Reader) (Info, error) {
	var info Info
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		rest = strings.TrimSpace(rest)

		switch key {
		case "exe":
			info.Exe = rest
		case "uid":
			info.UID, _ = strconv.ParseInt(rest, 10, 64)
		case "jobid":
			info.JobID = rest
		case "start_time":
			info.StartTime = parseEpoch(rest)
		case "end_time":
			info.EndTime = parseEpoch(rest)
		case "nprocs":
			info.NProcs, _ = strconv.ParseInt(rest, 10, 64)
		case "metadata":
			k, v, found := strings.Cut(rest, "=")
			if found {
				info.Metadata = append(info.Metadata, Metadata{
					Key:   strings.TrimSpace(k),
					Value: strings.TrimSpace(v),
				})
			}
		case "mount":
			p, fsType, found := strings.Cut(rest, "\t")
			if found {
				info.Mounts = append(info.Mounts, Mount{Path: strings.TrimSpace(p), FSType: strings.TrimSpace(fsType)})
			}
		}
	}
	return info, sc.Err()
}

func parseEpoch(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// RunTime is the job's wall-clock duration.
func (i Info) RunTime() time.Duration {
	return i.EndTime.Sub(i.StartTime)
}
