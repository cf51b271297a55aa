package label

// Spec describes the physical geometry and content of a synthetic label.
type Spec struct {
	WidthMM  float64
	HeightMM float64
	DPI      int
	Text     string
}

// Rendered holds an encoded label raster.
type Rendered struct {
	Bytes  []byte
	Width  int
	Height int
	Format string
}

// ValidationResult captures the outcome of payload validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}
