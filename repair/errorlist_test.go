package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorListAddKeepsSortedOrder(t *testing.T) {
	var l ErrorList
	l.Add(Entry{LBA: 30, Status: Repaired})
	l.Add(Entry{LBA: 10, Status: RepairFailed})
	l.Add(Entry{LBA: 20, Status: NotRepaired})

	got := l.Entries()
	assert.Equal(t, []uint64{10, 20, 30}, []uint64{got[0].LBA, got[1].LBA, got[2].LBA})
}

func TestErrorListAddReplacesExistingLBA(t *testing.T) {
	var l ErrorList
	l.Add(Entry{LBA: 10, Status: NotRepaired})
	l.Add(Entry{LBA: 10, Status: Repaired})

	assert.Equal(t, 1, l.Len())
	e, ok := l.Find(10)
	assert.True(t, ok)
	assert.Equal(t, Repaired, e.Status)
}

func TestErrorListContainsAndFind(t *testing.T) {
	var l ErrorList
	l.Add(Entry{LBA: 5, Status: Repaired})
	l.Add(Entry{LBA: 15, Status: RepairFailed})

	assert.True(t, l.Contains(5))
	assert.True(t, l.Contains(15))
	assert.False(t, l.Contains(6))

	_, ok := l.Find(6)
	assert.False(t, ok)
}

func TestErrorListSortAndDedupKeepsLastStatus(t *testing.T) {
	l := ErrorList{entries: []Entry{
		{LBA: 20, Status: NotRepaired},
		{LBA: 10, Status: NotRepaired},
		{LBA: 10, Status: Repaired},
		{LBA: 20, Status: RepairFailed},
	}}

	l.SortAndDedup()

	assert.Equal(t, 2, l.Len())
	e10, _ := l.Find(10)
	assert.Equal(t, Repaired, e10.Status)
	e20, _ := l.Find(20)
	assert.Equal(t, RepairFailed, e20.Status)
}

func TestErrorListCountByStatus(t *testing.T) {
	var l ErrorList
	l.Add(Entry{LBA: 1, Status: Repaired})
	l.Add(Entry{LBA: 2, Status: Repaired})
	l.Add(Entry{LBA: 3, Status: RepairFailed})

	assert.Equal(t, 2, l.CountByStatus(Repaired))
	assert.Equal(t, 1, l.CountByStatus(RepairFailed))
	assert.Equal(t, 0, l.CountByStatus(UnableToRepairAccessDenied))
}

func TestErrorListLenOnEmptyList(t *testing.T) {
	var l ErrorList
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains(0))
}
