package media

// Field names one of the logical metadata fields tracked per file.
type Field string

const (
	FieldCreation   Field = "CreationInstant"
	FieldOffset     Field = "UTCOffset"
	FieldCoordinate Field = "GPSCoordinate"
)

// Fields lists the logical fields in reporting order.
var Fields = []Field{FieldCreation, FieldOffset, FieldCoordinate}

// Validity classifies a field value after parsing.
type Validity int

const (
	Missing Validity = iota
	Invalid
	Suspect
	Valid
)

func (v Validity) String() string {
	switch v {
	case Missing:
		return "missing"
	case Invalid:
		return "invalid"
	case Suspect:
		return "suspect"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// ParseValidity is the inverse of Validity.String.
func ParseValidity(s string) Validity {
	switch s {
	case "invalid":
		return Invalid
	case "suspect":
		return Suspect
	case "valid":
		return Valid
	default:
		return Missing
	}
}

// FieldValue is a single metadata field as read from one source tag.
// The parsed value is only reachable when the validity is Valid or Suspect.
type FieldValue[T any] struct {
	RawText   string
	SourceTag string
	Validity  Validity
	value     T
}

// NewFieldValue builds a field value. v is dropped unless validity is Valid or Suspect.
func NewFieldValue[T any](raw, tag string, validity Validity, v T) FieldValue[T] {
	f := FieldValue[T]{RawText: raw, SourceTag: tag, Validity: validity}
	if validity == Valid || validity == Suspect {
		f.value = v
	}
	return f
}

// InvalidField records a present but unparseable tag value.
func InvalidField[T any](raw, tag string) FieldValue[T] {
	return FieldValue[T]{RawText: raw, SourceTag: tag, Validity: Invalid}
}

// Parsed returns the typed value when one is present.
func (f FieldValue[T]) Parsed() (T, bool) {
	if f.Validity == Valid || f.Validity == Suspect {
		return f.value, true
	}
	var zero T
	return zero, false
}

// Present reports whether any tag supplied the field, parseable or not.
func (f FieldValue[T]) Present() bool {
	return f.Validity != Missing
}
