package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/palette/internal/testutil"
	"github.com/HerbHall/palette/internal/theme"
	"go.uber.org/zap"
)

func newSQLiteLocal(t *testing.T) (*Local, *SQLiteKV) {
	t.Helper()
	kv, err := NewSQLiteKV(context.Background(), testutil.NewStore(t))
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	return NewLocal(kv, theme.Dark, zap.NewNop()), kv
}

func TestLoad_EmptyUsesDefaults(t *testing.T) {
	l, _ := newSQLiteLocal(t)

	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := theme.DefaultPreference(theme.Dark); !got.Equal(want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	prefs := []theme.Preference{
		testutil.NewPreference(),
		testutil.NewPreference(testutil.WithColorMode(theme.Light)),
		testutil.NewPreference(testutil.WithPreset("brachypelma")),
		testutil.NewPreference(testutil.WithPreset("gbb"), testutil.WithRetainedCustom("#111111", "#222222", "#333333")),
		testutil.NewPreference(testutil.WithCustom("#DC2626", "#abc", "#000000")),
		testutil.NewPreference(testutil.WithRetainedCustom("#111111", "#222222", "#333333")),
	}

	for _, want := range prefs {
		l, _ := newSQLiteLocal(t)
		ctx := context.Background()
		if err := l.Save(ctx, want); err != nil {
			t.Fatalf("Save(%+v): %v", want, err)
		}
		got, err := l.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestLoad_MalformedEntriesIgnored(t *testing.T) {
	tests := []struct {
		name      string
		colorMode string
		palette   string
		want      theme.Preference
	}{
		{
			name:      "garbage json",
			colorMode: "light",
			palette:   "{not json",
			want:      theme.DefaultPreference(theme.Light),
		},
		{
			name:      "unknown color mode",
			colorMode: "sepia",
			palette:   `{"paletteMode":"preset","presetId":"gbb","customColors":null}`,
			want:      testutil.NewPreference(testutil.WithPreset("gbb")),
		},
		{
			name:    "unknown palette mode",
			palette: `{"paletteMode":"rainbow","presetId":null,"customColors":null}`,
			want:    theme.DefaultPreference(theme.Dark),
		},
		{
			name:    "custom mode with bad colors",
			palette: `{"paletteMode":"custom","presetId":null,"customColors":{"primary":"red","secondary":"#000","accent":"#fff"}}`,
			want:    theme.DefaultPreference(theme.Dark),
		},
		{
			name:    "preset keeps selection but drops bad retained colors",
			palette: `{"paletteMode":"preset","presetId":"brachypelma","customColors":{"primary":"nope","secondary":"#000","accent":"#fff"}}`,
			want:    testutil.NewPreference(testutil.WithPreset("brachypelma")),
		},
		{
			name:    "preset mode without id",
			palette: `{"paletteMode":"preset","presetId":null,"customColors":null}`,
			want:    theme.DefaultPreference(theme.Dark),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			ctx := context.Background()
			if tt.colorMode != "" {
				_ = kv.Set(ctx, KeyColorMode, tt.colorMode)
			}
			_ = kv.Set(ctx, KeyPalette, tt.palette)

			got, err := NewLocal(kv, theme.Dark, zap.NewNop()).Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingKV) Set(context.Context, string, string) error   { return f.err }
func (f failingKV) SetMany(context.Context, map[string]string) error {
	return f.err
}

func TestLoad_StorageErrorReturnsDefaults(t *testing.T) {
	sentinel := errors.New("disk gone")
	l := NewLocal(failingKV{err: sentinel}, theme.Light, nil)

	got, err := l.Load(context.Background())
	if !errors.Is(err, sentinel) {
		t.Fatalf("Load error = %v, want sentinel", err)
	}
	if !got.Equal(theme.DefaultPreference(theme.Light)) {
		t.Errorf("Load() = %+v, want light defaults", got)
	}
	if err := l.Save(context.Background(), got); !errors.Is(err, sentinel) {
		t.Errorf("Save error = %v, want sentinel", err)
	}
}

func TestSave_WireFormat(t *testing.T) {
	kv := NewMemoryKV()
	l := NewLocal(kv, theme.Dark, nil)
	ctx := context.Background()

	if err := l.Save(ctx, testutil.NewPreference(testutil.WithColorMode(theme.Light))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mode, _ := kv.Get(ctx, KeyColorMode)
	if mode != "light" {
		t.Errorf("color mode entry = %q, want light", mode)
	}
	palette, _ := kv.Get(ctx, KeyPalette)
	if want := `{"paletteMode":"default","presetId":null,"customColors":null}`; palette != want {
		t.Errorf("palette entry = %s, want %s", palette, want)
	}
}

func TestSQLiteKV_Overwrite(t *testing.T) {
	_, kv := newSQLiteLocal(t)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	_ = kv.Set(ctx, "k", "one")
	_ = kv.Set(ctx, "k", "two")
	got, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "two" {
		t.Errorf("Get(k) = %q, want two", got)
	}
}

func TestSave_FailedWriteLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewStore(t)
	kv, err := NewSQLiteKV(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	l := NewLocal(kv, theme.Dark, zap.NewNop())

	before := testutil.NewPreference(testutil.WithColorMode(theme.Dark))
	if err := l.Save(ctx, before); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Reject palette writes so the color mode upsert succeeds and the
	// palette upsert fails inside the same save.
	_, err = db.SQL().ExecContext(ctx, `
		CREATE TRIGGER reject_palette_insert BEFORE INSERT ON cache_entries
		WHEN NEW.key = 'theme.palette' BEGIN SELECT RAISE(ABORT, 'palette rejected'); END;
		CREATE TRIGGER reject_palette_update BEFORE UPDATE ON cache_entries
		WHEN NEW.key = 'theme.palette' BEGIN SELECT RAISE(ABORT, 'palette rejected'); END;`)
	if err != nil {
		t.Fatalf("create triggers: %v", err)
	}

	if err := l.Save(ctx, testutil.NewPreference(testutil.WithColorMode(theme.Light))); err == nil {
		t.Fatal("Save succeeded with palette writes rejected")
	}
	mode, err := kv.Get(ctx, KeyColorMode)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if mode != string(theme.Dark) {
		t.Errorf("color mode = %q after failed save, want %q", mode, theme.Dark)
	}
	got, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(before) {
		t.Errorf("Load() = %+v, want %+v", got, before)
	}
}

func TestMemoryKV_SetMany(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	_ = kv.Set(ctx, "keep", "1")

	if err := kv.SetMany(ctx, map[string]string{"a": "x", "b": "y"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	for key, want := range map[string]string{"keep": "1", "a": "x", "b": "y"} {
		if got, _ := kv.Get(ctx, key); got != want {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}
