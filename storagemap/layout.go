package storagemap

// FileSpec names one physical file and the size it is expected to have once
// mapped. Sizes must be greater than zero; callers wanting an empty Map
// should pass an empty layout.
type FileSpec struct {
	Path         string
	ExpectedSize int64
}

// Layout is an ordered list of files to concatenate into a single logical
// address space. Order determines each entry's base_offset.
type Layout []FileSpec

// Mode controls how the underlying files are opened and mapped.
type Mode int

const (
	// ReadOnly maps files for reading only. Map.Write does not check the
	// mode; writing into a read-only mapping faults.
	ReadOnly Mode = iota
	// ReadWrite maps existing files for reading and writing.
	ReadWrite
	// ReadWriteEx creates files that do not yet exist (truncated to their
	// expected size) before mapping them for reading and writing.
	ReadWriteEx
)

// entry is a resolved, mapped file within a Map.
type entry struct {
	path       string
	baseOffset int64
	length     int64
	region     mmapRegion
}

func (e *entry) end() int64 { return e.baseOffset + e.length }
