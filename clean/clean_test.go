package clean

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarbrick/dstclean/config"
	"github.com/dswarbrick/dstclean/dst"
	"github.com/dswarbrick/dstclean/dsterr"
	"github.com/dswarbrick/dstclean/dstlog"
	"github.com/dswarbrick/dstclean/repair"
)

// fakeTransport hands back one pre-scripted outcome per Start() call,
// letting a test drive clean.Run through several DST-and-repair
// iterations deterministically.
type fakeTransport struct {
	runs     []dst.Status
	runIndex int
}

func (f *fakeTransport) SupportsKind(dst.Kind) bool { return true }
func (f *fakeTransport) Start(dst.Kind, dst.Mode) error {
	return nil
}
func (f *fakeTransport) Abort() error                    { return nil }
func (f *fakeTransport) EstimatedSeconds(dst.Kind) uint32 { return 1 }
func (f *fakeTransport) ReadProgress() (dst.Progress, error) {
	status := f.runs[f.runIndex]
	f.runIndex++
	return dst.Progress{Status: status, PercentComplete: 100}, nil
}

// fakeDevice implements clean.Device with no real I/O: WriteLBA and
// VerifyLBA succeed unless the LBA is listed in failVerify/failWrite.
type fakeDevice struct {
	transport   *fakeTransport
	log         dstlog.Log
	logs        []dstlog.Log // if set, consumed sequentially across ReadDSTLog calls instead of log
	logIndex    int
	totalLBA    uint64
	physBlock   uint32
	ataPassthru bool

	failVerify map[uint64]bool
	denyWrite  bool

	flushes       int
	passthroughes []uint64
}

func (d *fakeDevice) Transport() dst.Transport { return d.transport }
func (d *fakeDevice) WithExclusiveLock(fn func() error) error { return fn() }
func (d *fakeDevice) ReadDSTLog() (dstlog.Log, error) {
	if d.logs == nil {
		return d.log, nil
	}
	l := d.logs[d.logIndex]
	if d.logIndex < len(d.logs)-1 {
		d.logIndex++
	}
	return l, nil
}
func (d *fakeDevice) TotalLBACount() uint64     { return d.totalLBA }
func (d *fakeDevice) PhysicalBlockSize() uint32 { return d.physBlock }
func (d *fakeDevice) FlushCache() error {
	d.flushes++
	return nil
}
func (d *fakeDevice) SupportsATAPassthrough() bool { return d.ataPassthru }
func (d *fakeDevice) PassthroughWriteVerify(lba uint64, data []byte) error {
	d.passthroughes = append(d.passthroughes, lba)
	if d.denyWrite {
		return dsterr.New("ata_passthrough_write", dsterr.AccessDenied, errors.New("permission denied"))
	}
	n := uint64(len(data)) / 512
	for i := uint64(0); i < n; i++ {
		delete(d.failVerify, lba+i)
	}
	return nil
}
func (d *fakeDevice) ReadLBA(lba uint64, n int) ([]byte, error) {
	return make([]byte, n*512), nil
}
func (d *fakeDevice) WriteLBA(lba uint64, data []byte) error {
	if d.denyWrite {
		return dsterr.New("write_lba", dsterr.AccessDenied, errors.New("permission denied"))
	}
	// Simulate the drive transparently reallocating the sector: a
	// successful write clears any simulated bad-sector state.
	n := uint64(len(data)) / 512
	for i := uint64(0); i < n; i++ {
		delete(d.failVerify, lba+i)
	}
	return nil
}
func (d *fakeDevice) VerifyLBA(lba uint64, n int) error {
	for i := uint64(0); i < uint64(n); i++ {
		if d.failVerify[lba+i] {
			return errors.New("medium error")
		}
	}
	return nil
}
func (d *fakeDevice) ReassignBlocks(lbas []uint64) error { return nil }

func failureLog(lba uint64) dstlog.Log {
	return dstlog.Log{
		Type: dstlog.ATA,
		Entries: []dstlog.Descriptor{
			{Valid: true, Status: uint8(dst.StatusReadFailure), LBAOfFailure: lba},
		},
	}
}

func TestRunSucceedsWhenDSTPassesImmediately(t *testing.T) {
	dev := &fakeDevice{
		transport: &fakeTransport{runs: []dst.Status{dst.StatusCompleted}},
		physBlock: 512,
	}

	res, err := Run(context.Background(), dev, config.Default())
	require.NoError(t, err)
	assert.Equal(t, dst.Success, res.Outcome)
	assert.False(t, res.Repaired)
	assert.Equal(t, 0, res.Errors.Len())
}

func TestRunRepairsBadLBAThenPasses(t *testing.T) {
	dev := &fakeDevice{
		transport: &fakeTransport{runs: []dst.Status{dst.StatusReadFailure, dst.StatusCompleted}},
		log:       failureLog(12345),
		physBlock: 512,
	}

	res, err := Run(context.Background(), dev, config.Default())
	require.NoError(t, err)
	assert.Equal(t, dst.Success, res.Outcome)
	assert.True(t, res.Repaired)

	entry, ok := res.Errors.Find(12345)
	require.True(t, ok)
	assert.Equal(t, repair.Repaired, entry.Status)
}

func TestRunUnrepairableWhenNoLBAAttributable(t *testing.T) {
	dev := &fakeDevice{
		transport: &fakeTransport{runs: []dst.Status{dst.StatusUnknownFailure}},
		log: dstlog.Log{Entries: []dstlog.Descriptor{
			{Valid: true, Status: uint8(dst.StatusUnknownFailure), LBAOfFailure: dstlog.SentinelLBA},
		}},
		physBlock: 512,
	}

	res, err := Run(context.Background(), dev, config.Default())
	assert.Error(t, err)
	assert.Equal(t, 0, res.Errors.Len())
}

func TestRunPropagatesAccessDenied(t *testing.T) {
	dev := &fakeDevice{
		transport: &fakeTransport{runs: []dst.Status{dst.StatusReadFailure}},
		log:       failureLog(500),
		physBlock: 512,
		denyWrite: true,
	}
	cfg := config.Default()
	cfg.AutoWriteRealloc = true
	cfg.AutoReadRealloc = false

	res, err := Run(context.Background(), dev, cfg)
	assert.Error(t, err)
	entry, ok := res.Errors.Find(500)
	require.True(t, ok)
	assert.Equal(t, repair.UnableToRepairAccessDenied, entry.Status)
}

func TestRunExhaustsErrorBudget(t *testing.T) {
	dev := &fakeDevice{
		transport: &fakeTransport{runs: []dst.Status{
			dst.StatusReadFailure,
			dst.StatusReadFailure,
		}},
		logs:      []dstlog.Log{failureLog(1), failureLog(2)},
		physBlock: 512,
	}
	cfg := config.Default()
	cfg.ErrorLimit = 1

	res, err := Run(context.Background(), dev, cfg)
	assert.Error(t, err)
	assert.Equal(t, cfg.ErrorLimit+1, res.Errors.Len())

	first, ok := res.Errors.Find(1)
	require.True(t, ok)
	assert.Equal(t, repair.Repaired, first.Status)

	second, ok := res.Errors.Find(2)
	require.True(t, ok)
	assert.Equal(t, repair.NotRepaired, second.Status)
}

func TestVerifyNeighborhoodRepairsFailingLBA(t *testing.T) {
	dev := &fakeDevice{
		physBlock:  512,
		totalLBA:   1_000_000,
		failVerify: map[uint64]bool{995010: true},
	}
	cfg := config.Default()
	list := &repair.ErrorList{}
	engine := repair.New(dev, repair.Options{AutoReadRealloc: true, AutoWriteRealloc: true})

	err := verifyNeighborhood(dev, engine, list, 1000000, cfg)
	require.NoError(t, err)

	_, ok := list.Find(995010)
	assert.True(t, ok)
}
