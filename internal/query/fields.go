package query

import "amplecache/internal/attrs"

const (
	taskAlias = "t"
	noteAlias = "n"

	taskAttrsColumn = taskAlias + ".attrs"
)

// Task operands. Every filterable or sortable task field is declared once
// here with its storage tier.
var (
	opDue            = Column(taskAlias + ".due")
	opDeleted        = Column("COALESCE(" + taskAlias + ".deleted, 0)")
	opDone           = Column("COALESCE(" + taskAlias + ".done, 0)")
	opPriority       = Column(taskAlias + ".priority")
	opParent         = Column(taskAlias + ".parent_uuid")
	opTaskID         = Column(taskAlias + ".id")
	opCreatedAt      = JSONPath(taskAttrsColumn, attrs.KeyCreatedAt, AsInteger)
	opCompletedAt    = JSONPath(taskAttrsColumn, attrs.KeyCompletedAt, AsInteger)
	opStartAt        = JSONPath(taskAttrsColumn, attrs.KeyStartAt, AsInteger)
	opPoints         = JSONPath(taskAttrsColumn, attrs.KeyPoints, AsReal)
	opVictoryValue   = JSONPath(taskAttrsColumn, attrs.KeyVictoryValue, AsReal)
	opStreakCount    = JSONPath(taskAttrsColumn, attrs.KeyStreakCount, AsInteger)
	opDuration       = JSONPath(taskAttrsColumn, attrs.KeyDuration, AsText)
	opRepeat         = JSONPath(taskAttrsColumn, attrs.KeyRepeat, AsText)
	opFlags          = JSONPath(taskAttrsColumn, attrs.KeyFlags, AsText)
	opReferenceArray = JSONPath(taskAttrsColumn, attrs.KeyReferences, AsArray)
)

var (
	opNoteRowID   = Column(noteAlias + ".rowid")
	opNoteName    = Column(noteAlias + ".name COLLATE NOCASE")
	opNoteUpdated = Column(noteAlias + ".updated_at")
)

// Sort keys. Unknown keys are usage errors, never a silent fallback.
const (
	SortDue          = "due"
	SortPriority     = "priority"
	SortPoints       = "points"
	SortCreated      = "created"
	SortCompleted    = "completed"
	SortVictoryValue = "victory_value"
	SortStreakCount  = "streak_count"
	SortName         = "name"
	SortUpdated      = "updated"
)

type sortKey struct {
	operand    Operand
	descending bool
}

var taskSortKeys = map[string]sortKey{
	SortDue:          {operand: opDue, descending: true},
	SortPriority:     {operand: opPriority, descending: true},
	SortPoints:       {operand: opPoints, descending: true},
	SortCreated:      {operand: opCreatedAt, descending: true},
	SortCompleted:    {operand: opCompletedAt, descending: true},
	SortVictoryValue: {operand: opVictoryValue, descending: true},
	SortStreakCount:  {operand: opStreakCount, descending: true},
}

var noteSortKeys = map[string]sortKey{
	SortName:    {operand: opNoteName},
	SortUpdated: {operand: opNoteUpdated, descending: true},
}

// TaskColumns is the projection of every task statement; cache scans rows
// in exactly this order.
const TaskColumns = "t.id, t.uuid, t.local_uuid, t.remote_uuid, t.deleted, t.calendar_sync_required, " +
	"t.notify_at, t.attrs, t.content, t.due, t.done, t.is_scheduled_bullet, t.parent_uuid, t.priority"

// NoteColumns is the projection of every note statement, followed by a
// snippet column.
const NoteColumns = "n.rowid, n.remote_uuid, n.local_uuid, n.name, n.metadata, n.text, " +
	"n.remote_content, n.remote_digest, n.updated_at"
