// Package docmodel implements the hierarchical symbol tree: the typed
// DocItem nodes, their statuses, and the bidirectional reference graph
// between them.
package docmodel

// Kind tags what a DocItem represents in the repository tree.
type Kind int

const (
	KindRepo Kind = iota
	KindDir
	KindFile
	KindClass
	KindClassMethod
	KindFunction
	KindSubFunction
	KindGlobalVar
)

func (k Kind) String() string {
	switch k {
	case KindRepo:
		return "Repo"
	case KindDir:
		return "Dir"
	case KindFile:
		return "File"
	case KindClass:
		return "Class"
	case KindClassMethod:
		return "ClassMethod"
	case KindFunction:
		return "Function"
	case KindSubFunction:
		return "SubFunction"
	case KindGlobalVar:
		return "GlobalVar"
	default:
		return "Unknown"
	}
}

// ToStr renders the kind the way a rendered heading names it, mirroring
// the ClassDef/FunctionDef vocabulary the parser contract uses.
func (k Kind) ToStr() string {
	switch k {
	case KindClass:
		return "ClassDef"
	case KindClassMethod, KindFunction, KindSubFunction:
		return "FunctionDef"
	default:
		return k.String()
	}
}

// Status is the regeneration status of a DocItem.
type Status int

const (
	StatusUpToDate Status = iota
	StatusNotGenerated
	StatusCodeChanged
	StatusHasNewReferencer
	StatusHasNoReferencer
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "UpToDate"
	case StatusNotGenerated:
		return "NotGenerated"
	case StatusCodeChanged:
		return "CodeChanged"
	case StatusHasNewReferencer:
		return "HasNewReferencer"
	case StatusHasNoReferencer:
		return "HasNoReferencer"
	default:
		return "Unknown"
	}
}
