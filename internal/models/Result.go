package models

type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusCreated
	StatusNoChange
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusCreated:
		return "created"
	case StatusNoChange:
		return "no_change"
	default:
		return "not_found"
	}
}

// Result is returned by store operations that may legitimately produce no
// record. Record is only set for StatusFound and StatusCreated.
type Result struct {
	Status Status
	Record *Record
}

func Found(record Record) Result {
	return Result{Status: StatusFound, Record: &record}
}

func Created(record Record) Result {
	return Result{Status: StatusCreated, Record: &record}
}

func NoChange() Result {
	return Result{Status: StatusNoChange}
}

func NotFound() Result {
	return Result{Status: StatusNotFound}
}

func (r Result) Ok() bool {
	return r.Record != nil
}
