package module

import "github.com/nersc/darshan-go/internal/common"

// MPI-IO counter indices. ReadCalls/WriteCalls are sums across the
// independent, collective, split-collective and nonblocking variants
// (spec §4.4: "MPI-IO's read/write call counts are the sum of its
// independent, collective, split and nonblocking counters").
const (
	mIndepReads = iota
	mIndepWrites
	mCollReads
	mCollWrites
	mSplitReads
	mSplitWrites
	mNBReads
	mNBWrites
	mBytesRead
	mBytesWritten
)

const (
	mfMetaTime = iota
	mfReadTime
	mfWriteTime
	mfSlowestRankTime
)

func newMPIIODecoder(version string) Decoder {
	return newGenDecoder(&layout{
		id:      common.ModuleMPIIO,
		version: version,
		counterNames: []string{
			"MPIIO_INDEP_READS", "MPIIO_INDEP_WRITES",
			"MPIIO_COLL_READS", "MPIIO_COLL_WRITES",
			"MPIIO_SPLIT_READS", "MPIIO_SPLIT_WRITES",
			"MPIIO_NB_READS", "MPIIO_NB_WRITES",
			"MPIIO_BYTES_READ", "MPIIO_BYTES_WRITTEN",
		},
		fcounterNames: []string{
			"MPIIO_F_META_TIME", "MPIIO_F_READ_TIME", "MPIIO_F_WRITE_TIME",
			"MPIIO_F_SLOWEST_RANK_TIME",
		},
		bytesReadIdx:    mBytesRead,
		bytesWrittenIdx: mBytesWritten,
		readCallsIdx:    []int{mIndepReads, mCollReads, mSplitReads, mNBReads},
		writeCallsIdx:   []int{mIndepWrites, mCollWrites, mSplitWrites, mNBWrites},
		metaTimeIdx:     mfMetaTime,
		readTimeIdx:     mfReadTime,
		writeTimeIdx:    mfWriteTime,
		slowestIdx:      mfSlowestRankTime,
	})
}
