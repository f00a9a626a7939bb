package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/thumbnail"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		want     string
	}{
		{"Returns default when env var not set", "", false, "default"},
		{"Returns env value when set", "custom", true, "custom"},
		{"Returns default when env var is empty", "", true, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "THUMBNAILER_TEST_VAR"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}

			if got := getEnv(key, "default"); got != tt.want {
				t.Errorf("getEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"0", true, false},
		{"FALSE", true, false},
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Setenv("THUMBNAILER_TEST_BOOL", tt.value)
		if got := getEnvBool("THUMBNAILER_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 50},
		{"75", 75},
		{" 0 ", 0},
		{"100", 100},
		{"101", 50},
		{"-1", 50},
		{"abc", 50},
	}

	for _, tt := range tests {
		t.Setenv("THUMBNAILER_TEST_INT", tt.value)
		if got := getEnvInt("THUMBNAILER_TEST_INT", 50, 0, 100); got != tt.want {
			t.Errorf("getEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestGetEnvDurationAndFloat(t *testing.T) {
	t.Setenv("THUMBNAILER_TEST_DUR", "30s")
	if got := getEnvDuration("THUMBNAILER_TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("getEnvDuration() = %v, want 30s", got)
	}

	t.Setenv("THUMBNAILER_TEST_DUR", "-5s")
	if got := getEnvDuration("THUMBNAILER_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration() negative = %v, want default", got)
	}

	t.Setenv("THUMBNAILER_TEST_FLOAT", "0.5")
	if got := getEnvFloat("THUMBNAILER_TEST_FLOAT", 0.75); got != 0.5 {
		t.Errorf("getEnvFloat() = %v, want 0.5", got)
	}

	t.Setenv("THUMBNAILER_TEST_FLOAT", "half")
	if got := getEnvFloat("THUMBNAILER_TEST_FLOAT", 0.75); got != 0.75 {
		t.Errorf("getEnvFloat() invalid = %v, want default", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("THUMBNAILER_TEST_LIST", " imaging, ,raster ,")
	got := getEnvList("THUMBNAILER_TEST_LIST")
	if len(got) != 2 || got[0] != "imaging" || got[1] != "raster" {
		t.Errorf("getEnvList() = %v, want [imaging raster]", got)
	}

	t.Setenv("THUMBNAILER_TEST_LIST", "")
	if got := getEnvList("THUMBNAILER_TEST_LIST"); got != nil {
		t.Errorf("getEnvList() empty = %v, want nil", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		want    thumbnail.RGB
		wantErr bool
	}{
		{"#ffffff", thumbnail.RGB{R: 255, G: 255, B: 255}, false},
		{"ff8800", thumbnail.RGB{R: 255, G: 136, B: 0}, false},
		{"#f80", thumbnail.RGB{R: 255, G: 136, B: 0}, false},
		{" #000000 ", thumbnail.RGB{}, false},
		{"#gg0000", thumbnail.RGB{}, true},
		{"red", thumbnail.RGB{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestGetEnvFormat(t *testing.T) {
	tests := []struct {
		value string
		want  backend.Format
	}{
		{"", backend.FormatUnknown},
		{"source", backend.FormatUnknown},
		{"png", backend.FormatPNG},
		{"JPG", backend.FormatJPEG},
		{"tga", backend.FormatUnknown},
	}

	for _, tt := range tests {
		t.Setenv("THUMBNAILER_TEST_FORMAT", tt.value)
		if got := getEnvFormat("THUMBNAILER_TEST_FORMAT"); got != tt.want {
			t.Errorf("getEnvFormat(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestLoadThumbnailOptions(t *testing.T) {
	t.Setenv("THUMB_ENGINES", "imaging,raster")
	t.Setenv("THUMB_RESIZE_UP", "true")
	t.Setenv("THUMB_JPEG_QUALITY", "85")
	t.Setenv("THUMB_PRESERVE_ALPHA", "false")
	t.Setenv("THUMB_ALPHA_MASK_COLOR", "336699")
	t.Setenv("THUMB_TRANSPARENCY_MASK_COLOR", "not-a-color")
	t.Setenv("THUMB_CORRECT_PERMISSIONS", "true")

	opts := loadThumbnailOptions()

	if len(opts.Engines) != 2 || opts.Engines[0] != "imaging" {
		t.Errorf("Engines = %v, want [imaging raster]", opts.Engines)
	}
	if !opts.ResizeUp || opts.JPEGQuality != 85 || opts.PreserveAlpha || !opts.CorrectPermissions {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.AlphaMaskColor != (thumbnail.RGB{R: 0x33, G: 0x66, B: 0x99}) {
		t.Errorf("AlphaMaskColor = %s, want #336699", opts.AlphaMaskColor)
	}
	if opts.TransparencyMaskColor != thumbnail.DefaultOptions().TransparencyMaskColor {
		t.Errorf("invalid TransparencyMaskColor should keep default, got %s", opts.TransparencyMaskColor)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadThumbnailOptionsUnknownEngine(t *testing.T) {
	t.Setenv("THUMB_ENGINES", "imaging,gd")

	if opts := loadThumbnailOptions(); opts.Engines != nil {
		t.Errorf("Engines = %v, want nil for unknown engine", opts.Engines)
	}
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	t.Setenv("MEDIA_DIR", filepath.Join(root, "media"))
	t.Setenv("CACHE_DIR", filepath.Join(root, "cache"))
	t.Setenv("THUMB_DEFAULT_SIZE", "500")
	t.Setenv("THUMB_MAX_SIZE", "300")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if _, err := os.Stat(config.MediaDir); err != nil {
		t.Errorf("media directory not created: %v", err)
	}
	if config.ThumbnailDir != filepath.Join(root, "cache", "thumbnails") {
		t.Errorf("ThumbnailDir = %s", config.ThumbnailDir)
	}
	if !config.CacheEnabled {
		t.Error("expected cache to be enabled for a writable temp dir")
	}
	if config.DefaultSize != 300 {
		t.Errorf("DefaultSize = %d, want clamp to MaxSize 300", config.DefaultSize)
	}
	if config.Workers < 1 {
		t.Errorf("Workers = %d, want at least 1", config.Workers)
	}
}

func TestLoadConfigMediaIsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "media")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEDIA_DIR", file)
	t.Setenv("CACHE_DIR", filepath.Join(root, "cache"))

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error when MEDIA_DIR is a file")
	}
}

func TestSetupOptionalDirFailure(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "blocker")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if setupOptionalDir(filepath.Join(file, "thumbnails"), "thumbnail cache") {
		t.Error("expected setup to fail below a regular file")
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/thumbnail/{path:.*}", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET", "HEAD")
	router.HandleFunc("/health", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET").Name("health")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3: %+v", len(routes), routes)
	}
	if routes[2].Name != "health" || routes[2].Path != "/health" {
		t.Errorf("unexpected route: %+v", routes[2])
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/thumbnail/{path:.*}", "api/thumbnail"},
		{"/api/engine", "api/engine"},
		{"/health", "health"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
