package chainsync

import "time"

const (
	defaultWorkerCount = 8

	// maxBlocksPerSync bounds one iteration while catching up.
	maxBlocksPerSync = 100
	// reorgWindow is how many delivered block hashes are kept to find a
	// fork point.
	reorgWindow = 24

	pollInterval  = 5 * time.Second
	retryInterval = 30 * time.Second
)
