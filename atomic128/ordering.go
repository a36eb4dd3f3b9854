// ordering.go
//
// Memory-order selectors for the double-word operations.  The five values
// mirror the C11 set; the byte codes exist for callers arriving over the
// shared-library boundary, where an enum cannot cross.

package atomic128

// Ordering selects how an operation may be reordered against surrounding
// memory accesses.  Back ends are free to substitute a stronger order;
// Relaxed still guarantees atomicity of the 16-byte access itself.
type Ordering uint8

// The five orders, weakest to strongest.
const (
	Relaxed Ordering = iota // atomicity only
	Acquire                 // later accesses stay below the operation
	Release                 // earlier accesses stay above the operation
	AcqRel                  // Acquire on the read half, Release on the write half
	SeqCst                  // one total order across all SeqCst operations
)

// OrderingFromCode maps a boundary code byte to an Ordering.  Codes 0
// through 3 select Relaxed, Acquire, Release and AcqRel; every other byte
// selects SeqCst.  The mapping is total, so no byte arriving over the
// boundary is ever rejected.
func OrderingFromCode(code uint8) Ordering {
	switch code {
	case 0:
		return Relaxed
	case 1:
		return Acquire
	case 2:
		return Release
	case 3:
		return AcqRel
	default:
		return SeqCst
	}
}

// Code returns the boundary byte for o.  Values outside the five named
// orders read back as the SeqCst code, matching how every consumer
// treats them.
func (o Ordering) Code() uint8 {
	if o > SeqCst {
		return uint8(SeqCst)
	}
	return uint8(o)
}

// String names o for diagnostics.
func (o Ordering) String() string {
	switch o {
	case Relaxed:
		return "Relaxed"
	case Acquire:
		return "Acquire"
	case Release:
		return "Release"
	case AcqRel:
		return "AcqRel"
	default:
		return "SeqCst"
	}
}
