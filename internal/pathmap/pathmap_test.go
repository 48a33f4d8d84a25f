package pathmap

import (
	"testing"
	"unicode/utf8"

	"github.com/benito334/ingest-viewer/internal/domain/model"
)

func TestStaticPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unix путь", "/home/user/data/videos/v1.mp4", "/static/videos/v1.mp4"},
		{"windows путь", `C:\ingest\data\pdf\book.pdf`, "/static/pdf/book.pdf"},
		{"смешанные разделители", `/srv/data\instagram/p1.jpg`, "/static/instagram/p1.jpg"},
		{"относительный путь", "data/epub/b.epub", "/static/epub/b.epub"},
		{"первый сегмент data", "/a/data/b/data/c.mp4", "/static/b/data/c.mp4"},
		{"metadata не равно data", "/srv/metadata/x.json", "/srv/metadata/x.json"},
		{"нет сегмента data", `\srv\files\x.mp4`, "/srv/files/x.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StaticPath(tt.in); got != tt.want {
				t.Errorf("StaticPath(%q) = %q, ожидается %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/user/data/videos/v1.mp4", "/static/videos/v1.json"},
		{`D:\data\pdf\report.final.pdf`, "/static/pdf/report.final.json"},
		{"/home/user/data/videos/noext", "/static/videos/noext"},
	}
	for _, tt := range tests {
		if got := SidecarPath(tt.in); got != tt.want {
			t.Errorf("SidecarPath(%q) = %q, ожидается %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadAndSidecarURL_PreferStructuredFields(t *testing.T) {
	static := "/static/custom/v1.mp4"
	sidecar := "/static/custom/v1.meta.json"

	r := model.MetadataRecord{FilePath: "/home/user/data/videos/v1.mp4"}
	if got := DownloadURL(r); got != "/static/videos/v1.mp4" {
		t.Errorf("DownloadURL fallback = %q", got)
	}
	if got := SidecarURL(r); got != "/static/videos/v1.json" {
		t.Errorf("SidecarURL fallback = %q", got)
	}

	r.StaticURL = &static
	r.SidecarURL = &sidecar
	if got := DownloadURL(r); got != static {
		t.Errorf("DownloadURL = %q, ожидается %q", got, static)
	}
	if got := SidecarURL(r); got != sidecar {
		t.Errorf("SidecarURL = %q, ожидается %q", got, sidecar)
	}
}

func TestTruncateMiddle(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz0123456789ABCDEF"

	got := TruncateMiddle(long, 10)
	if got != "abcde…BCDEF" {
		t.Errorf("TruncateMiddle = %q, ожидается %q", got, "abcde…BCDEF")
	}
	if n := utf8.RuneCountInString(got); n != 11 {
		t.Errorf("длина = %d символов, ожидается 11", n)
	}

	// Строки не длиннее max не меняются
	if got := TruncateMiddle("short", 10); got != "short" {
		t.Errorf("TruncateMiddle(short) = %q", got)
	}
	if got := TruncateMiddle("exactly-10", 10); got != "exactly-10" {
		t.Errorf("TruncateMiddle(exactly-10) = %q", got)
	}

	// Неположительный limit оставляет только многоточие
	for _, limit := range []int{0, -1, -3} {
		if got := TruncateMiddle("abcdef", limit); got != "…" {
			t.Errorf("TruncateMiddle(abcdef, %d) = %q, ожидается …", limit, got)
		}
	}
	if got := TruncateMiddle("", -3); got != "" {
		t.Errorf("TruncateMiddle(\"\", -3) = %q, ожидается пустая строка", got)
	}

	// Многобайтовые символы не разрезаются
	cyr := "данные/видео/очень-длинное-имя-файла.mp4"
	out := TruncateMiddle(cyr, DefaultTruncate-30)
	if !utf8.ValidString(out) {
		t.Errorf("результат не является валидным UTF-8: %q", out)
	}
}
