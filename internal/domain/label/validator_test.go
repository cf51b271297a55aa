package label

import (
	"testing"

	"printbridge-probe/internal/platform/config"
	platformtesting "printbridge-probe/internal/platform/testing"
)

func testSecurity() *config.SecurityConfig {
	return &config.SecurityConfig{
		MaxFileSize:    5 * 1024 * 1024,
		MaxPixels:      16777216,
		MaxWidth:       4096,
		MaxHeight:      4096,
		AllowedFormats: []string{"png"},
	}
}

func renderTestLabel(t *testing.T) *Rendered {
	t.Helper()
	rendered, err := NewRenderer().Render(defaultSpec())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return rendered
}

func TestValidator_ValidPayload(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	validator := NewValidator(testSecurity(), logger.Base())

	rendered := renderTestLabel(t)
	result := validator.ValidateBytes(rendered.Bytes, "png")

	if !result.IsValid {
		t.Fatalf("expected valid payload, got error: %v", result.Error)
	}
	if result.Format != "png" {
		t.Errorf("expected format png, got %s", result.Format)
	}
	if result.Width != 238 || result.Height != 131 {
		t.Errorf("expected 238x131, got %dx%d", result.Width, result.Height)
	}
	if result.FileSize != int64(len(rendered.Bytes)) {
		t.Errorf("expected file size %d, got %d", len(rendered.Bytes), result.FileSize)
	}
}

func TestValidator_EmptyPayload(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	validator := NewValidator(testSecurity(), logger.Base())

	result := validator.ValidateBytes(nil, "png")
	if result.IsValid {
		t.Fatal("expected empty payload to be rejected")
	}
}

func TestValidator_OversizedPayload(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	security := testSecurity()
	security.MaxFileSize = 16
	validator := NewValidator(security, logger.Base())

	rendered := renderTestLabel(t)
	result := validator.ValidateBytes(rendered.Bytes, "png")

	if result.IsValid {
		t.Fatal("expected oversized payload to be rejected")
	}
	if result.SecurityRisk != "file too large" {
		t.Errorf("expected file too large risk, got %q", result.SecurityRisk)
	}
}

func TestValidator_UnapprovedFormat(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	validator := NewValidator(testSecurity(), logger.Base())

	rendered := renderTestLabel(t)
	result := validator.ValidateBytes(rendered.Bytes, "gif")

	if result.IsValid {
		t.Fatal("expected unapproved format to be rejected")
	}
	if result.SecurityRisk != "unapproved format" {
		t.Errorf("expected unapproved format risk, got %q", result.SecurityRisk)
	}
}

func TestValidator_CorruptedPayload(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	validator := NewValidator(testSecurity(), logger.Base())

	result := validator.ValidateBytes([]byte("definitely not an image"), "png")
	if result.IsValid {
		t.Fatal("expected corrupted payload to be rejected")
	}
	if result.SecurityRisk != "corrupted payload" {
		t.Errorf("expected corrupted payload risk, got %q", result.SecurityRisk)
	}
}

func TestValidator_DimensionLimit(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	security := testSecurity()
	security.MaxWidth = 100
	validator := NewValidator(security, logger.Base())

	rendered := renderTestLabel(t)
	result := validator.ValidateBytes(rendered.Bytes, "png")

	if result.IsValid {
		t.Fatal("expected wide payload to be rejected")
	}
	if result.SecurityRisk != "dimensions too large" {
		t.Errorf("expected dimensions too large risk, got %q", result.SecurityRisk)
	}
}
