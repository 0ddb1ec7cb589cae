package repair

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarbrick/dstclean/dsterr"
)

type fakeBlockIO struct {
	physBlockSize uint32
	ataPassthru   bool

	readErr        error
	readErrs       []error // per-call override, consumed in order
	writeErr       error
	verifyErr      error
	reassignErr    error
	passthroughErr error

	reads         []uint64
	writes        []uint64
	verifies      []uint64
	reassigns     [][]uint64
	passthroughes []uint64
	flushes       int
}

func (f *fakeBlockIO) PhysicalBlockSize() uint32 { return f.physBlockSize }

func (f *fakeBlockIO) ReadLBA(lba uint64, n int) ([]byte, error) {
	f.reads = append(f.reads, lba)
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		return nil, err
	}
	return make([]byte, n*512), f.readErr
}

func (f *fakeBlockIO) WriteLBA(lba uint64, data []byte) error {
	f.writes = append(f.writes, lba)
	return f.writeErr
}

func (f *fakeBlockIO) VerifyLBA(lba uint64, n int) error {
	f.verifies = append(f.verifies, lba)
	return f.verifyErr
}

func (f *fakeBlockIO) FlushCache() error {
	f.flushes++
	return nil
}

func (f *fakeBlockIO) ReassignBlocks(lbas []uint64) error {
	f.reassigns = append(f.reassigns, lbas)
	return f.reassignErr
}

func (f *fakeBlockIO) SupportsATAPassthrough() bool { return f.ataPassthru }

func (f *fakeBlockIO) PassthroughWriteVerify(lba uint64, data []byte) error {
	f.passthroughes = append(f.passthroughes, lba)
	return f.passthroughErr
}

func defaultOpts() Options {
	return Options{AutoReadRealloc: true, AutoWriteRealloc: true}
}

func TestRepairAlignsToPhysicalBlockBoundary(t *testing.T) {
	dev := &fakeBlockIO{physBlockSize: 4096} // 8 logical sectors per physical block
	e := New(dev, defaultOpts())

	status, err := e.Repair(13)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	// 13 falls in the physical block starting at LBA 8.
	assert.Equal(t, []uint64{8}, dev.reads)
}

func TestRepairReadReallocVerifiesBeforeReportingRepaired(t *testing.T) {
	dev := &fakeBlockIO{physBlockSize: 512, verifyErr: errors.New("still bad")}
	e := New(dev, defaultOpts())

	status, err := e.Repair(50)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status, "should fall through past the failed verify to write-realloc, then REASSIGN BLOCKS")
	assert.NotEmpty(t, dev.writes, "write-realloc is attempted once read-realloc's verify fails")
	assert.NotEmpty(t, dev.reassigns, "write-realloc's own verify also fails, so REASSIGN BLOCKS is reached")
}

func TestRepairForcePassthroughIsTerminalOnATADrive(t *testing.T) {
	dev := &fakeBlockIO{physBlockSize: 512, ataPassthru: true}
	opts := defaultOpts()
	opts.ForcePassthrough = true
	e := New(dev, opts)

	status, err := e.Repair(7)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	assert.Empty(t, dev.reads, "force-passthrough must not fall through to read-realloc")
	assert.Empty(t, dev.writes, "force-passthrough writes via PassthroughWriteVerify, not WriteLBA")
	assert.Empty(t, dev.reassigns)
	assert.Equal(t, []uint64{7}, dev.passthroughes)
}

func TestRepairForcePassthroughFallsThroughOnNonATADrive(t *testing.T) {
	dev := &fakeBlockIO{physBlockSize: 512, ataPassthru: false}
	opts := defaultOpts()
	opts.ForcePassthrough = true
	e := New(dev, opts)

	status, err := e.Repair(7)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	assert.Empty(t, dev.passthroughes, "a non-ATA device has no pass-through path to force")
	assert.NotEmpty(t, dev.reads, "should fall through to the normal read-realloc path instead")
}

func TestRepairAccessDeniedOnATADriveRetriesViaPassthroughOnce(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		ataPassthru:   true,
		readErr:       dsterr.New("read_lba", dsterr.AccessDenied, errors.New("permission denied")),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(3)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status, "the one-shot pass-through retry should succeed")
	assert.Equal(t, []uint64{3}, dev.passthroughes)
}

func TestRepairAccessDeniedRetryDoesNotLoopForever(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize:  512,
		ataPassthru:    true,
		readErr:        dsterr.New("read_lba", dsterr.AccessDenied, errors.New("permission denied")),
		passthroughErr: dsterr.New("ata_passthrough_write", dsterr.AccessDenied, errors.New("permission denied")),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(3)
	assert.Error(t, err)
	assert.Equal(t, UnableToRepairAccessDenied, status)
	assert.Len(t, dev.passthroughes, 1, "the retry must fire exactly once, not recurse forever")
}

func TestRepairAccessDeniedOnNonATADriveDoesNotRetry(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		ataPassthru:   false,
		readErr:       dsterr.New("read_lba", dsterr.AccessDenied, errors.New("permission denied")),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(3)
	assert.Error(t, err)
	assert.Equal(t, UnableToRepairAccessDenied, status)
	assert.Empty(t, dev.passthroughes)
}

func TestRepairReadReallocSucceedsAfterRetries(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErrs:      []error{errors.New("medium error"), errors.New("medium error"), nil},
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(1)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	assert.Len(t, dev.reads, 3)
	assert.Empty(t, dev.writes, "write-realloc should not be tried once read-realloc succeeds")
}

func TestRepairFallsBackToWriteReallocWhenReadFails(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErr:       errors.New("medium error"),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(1)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	assert.NotEmpty(t, dev.writes)
	assert.Empty(t, dev.reassigns, "write-realloc succeeding should skip REASSIGN BLOCKS")
}

func TestRepairFallsBackToReassignWhenReadAndWriteFail(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErr:       errors.New("medium error"),
		writeErr:      errors.New("medium error"),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(9)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status)
	assert.Equal(t, [][]uint64{{9}}, dev.reassigns)
}

func TestRepairReportsFailureWhenReassignFails(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErr:       errors.New("medium error"),
		writeErr:      errors.New("medium error"),
		reassignErr:   errors.New("reassign blocks failed"),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(9)
	assert.Error(t, err)
	assert.Equal(t, RepairFailed, status)
}

func TestRepairClassifiesAccessDeniedFromReadRealloc(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErr:       dsterr.New("read_lba", dsterr.AccessDenied, errors.New("permission denied")),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(3)
	assert.Error(t, err)
	assert.Equal(t, UnableToRepairAccessDenied, status)
	assert.Empty(t, dev.writes, "access denied must stop the engine rather than falling through")
}

func TestRepairClassifiesAccessDeniedFromWriteRealloc(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		readErr:       errors.New("medium error"),
		verifyErr:     dsterr.New("verify_lba", dsterr.AccessDenied, errors.New("permission denied")),
	}
	e := New(dev, defaultOpts())

	status, err := e.Repair(3)
	assert.Error(t, err)
	assert.Equal(t, UnableToRepairAccessDenied, status)
	assert.Empty(t, dev.reassigns)
}

func TestRepairClassifiesAccessDeniedFromReassign(t *testing.T) {
	dev := &fakeBlockIO{
		physBlockSize: 512,
		reassignErr:   dsterr.New("reassign_blocks", dsterr.AccessDenied, errors.New("permission denied")),
	}
	opts := Options{AutoReadRealloc: false, AutoWriteRealloc: false}
	e := New(dev, opts)

	status, err := e.Repair(3)
	assert.Error(t, err)
	assert.Equal(t, UnableToRepairAccessDenied, status)
}

func TestRepairHonorsDisabledAutoReallocFlags(t *testing.T) {
	dev := &fakeBlockIO{physBlockSize: 512, readErr: errors.New("medium error")}
	opts := Options{AutoReadRealloc: false, AutoWriteRealloc: false}
	e := New(dev, opts)

	status, err := e.Repair(3)
	require.NoError(t, err)
	assert.Equal(t, Repaired, status, "should go straight to REASSIGN BLOCKS")
	assert.Empty(t, dev.reads, "read-realloc disabled by options must not be attempted")
	assert.Empty(t, dev.writes)
	assert.Equal(t, [][]uint64{{3}}, dev.reassigns)
}
