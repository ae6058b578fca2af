package module

import "github.com/nersc/darshan-go/internal/common"

// POSIX counter indices. Mirrors the shape of the real POSIX module's
// counters[]/fcounters[] arrays without claiming byte compatibility with
// any particular upstream schema version.
const (
	pOpens = iota
	pReads
	pWrites
	pSeeks
	pStats
	pBytesRead
	pBytesWritten
	pMaxByteRead
	pMaxByteWritten
)

const (
	pfMetaTime = iota
	pfReadTime
	pfWriteTime
	pfSlowestRankTime
)

func newPosixDecoder(version string) Decoder {
	return newGenDecoder(&layout{
		id:      common.ModulePOSIX,
		version: version,
		counterNames: []string{
			"POSIX_OPENS", "POSIX_READS", "POSIX_WRITES", "POSIX_SEEKS",
			"POSIX_STATS", "POSIX_BYTES_READ", "POSIX_BYTES_WRITTEN",
			"POSIX_MAX_BYTE_READ", "POSIX_MAX_BYTE_WRITTEN",
		},
		fcounterNames: []string{
			"POSIX_F_META_TIME", "POSIX_F_READ_TIME", "POSIX_F_WRITE_TIME",
			"POSIX_F_SLOWEST_RANK_TIME",
		},
		bytesReadIdx:    pBytesRead,
		bytesWrittenIdx: pBytesWritten,
		readCallsIdx:    []int{pReads},
		writeCallsIdx:   []int{pWrites},
		metaTimeIdx:     pfMetaTime,
		readTimeIdx:     pfReadTime,
		writeTimeIdx:    pfWriteTime,
		slowestIdx:      pfSlowestRankTime,
	})
}
