package module

import "github.com/nersc/darshan-go/internal/common"

const (
	sOpens = iota
	sReads
	sWrites
	sSeeks
	sFlushes
	sBytesRead
	sBytesWritten
)

const (
	sfMetaTime = iota
	sfReadTime
	sfWriteTime
	sfSlowestRankTime
)

func newStdioDecoder(version string) Decoder {
	return newGenDecoder(&layout{
		id:      common.ModuleSTDIO,
		version: version,
		counterNames: []string{
			"STDIO_OPENS", "STDIO_READS", "STDIO_WRITES", "STDIO_SEEKS",
			"STDIO_FLUSHES", "STDIO_BYTES_READ", "STDIO_BYTES_WRITTEN",
		},
		fcounterNames: []string{
			"STDIO_F_META_TIME", "STDIO_F_READ_TIME", "STDIO_F_WRITE_TIME",
			"STDIO_F_SLOWEST_RANK_TIME",
		},
		bytesReadIdx:    sBytesRead,
		bytesWrittenIdx: sBytesWritten,
		readCallsIdx:    []int{sReads},
		writeCallsIdx:   []int{sWrites},
		metaTimeIdx:     sfMetaTime,
		readTimeIdx:     sfReadTime,
		writeTimeIdx:    sfWriteTime,
		slowestIdx:      sfSlowestRankTime,
	})
}
