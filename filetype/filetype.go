// Package filetype classifies uploaded files into the closed category set
// that drives handler selection.
//
// Extension match is primary and case-insensitive. When the extension is
// unknown but a content type was supplied, MIME membership is consulted as a
// secondary signal. Classification never fails: anything unrecognized maps
// to CategoryDefault.
package filetype

import (
	"path/filepath"
	"strings"
)

// Category identifies a format family handled by one handler implementation.
type Category string

const (
	CategoryPDF     Category = "pdf"
	CategoryOffice  Category = "office"
	CategoryText    Category = "text"
	CategoryImage   Category = "image"
	CategoryAudio   Category = "audio"
	CategoryVideo   Category = "video"
	CategoryModel3D Category = "model3d"
	CategoryFont    Category = "font"
	CategoryEmail   Category = "email"
	CategoryArchive Category = "archive"
	CategoryMisc    Category = "misc"
	CategoryDefault Category = "default"
)

// Categories lists every category with a dedicated handler, in registry order.
func Categories() []Category {
	return []Category{
		CategoryPDF, CategoryOffice, CategoryText, CategoryImage,
		CategoryAudio, CategoryVideo, CategoryModel3D, CategoryFont,
		CategoryEmail, CategoryArchive, CategoryMisc, CategoryDefault,
	}
}

// Ext returns the lowercase extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify maps a filename and optional content type to a category.
func Classify(filename, contentType string) Category {
	if cat, ok := byExtension[Ext(filename)]; ok {
		return cat
	}
	if contentType != "" {
		// Strip parameters such as "; charset=utf-8".
		mime := strings.TrimSpace(strings.ToLower(contentType))
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = strings.TrimSpace(mime[:i])
		}
		if cat, ok := byMIME[mime]; ok {
			return cat
		}
	}
	return CategoryDefault
}

// Supported reports whether an upload should be accepted at all, by
// extension or by content type.
func Supported(filename, contentType string) bool {
	if filename == "" {
		return false
	}
	if _, ok := byExtension[Ext(filename)]; ok {
		return true
	}
	return Classify(filename, contentType) != CategoryDefault
}

// Extension groups reused by the conversion layer for tool dispatch.
var (
	officeDocExts   = []string{".doc", ".docx", ".odt", ".sxw", ".fodt", ".rtf", ".abw"}
	officeSheetExts = []string{".xls", ".xlsx", ".ods", ".fods", ".csv", ".xlsb"}
	officeSlideExts = []string{".ppt", ".pptx", ".pps", ".ppsx", ".odp", ".fodp", ".sxi"}

	textExts  = []string{".txt", ".md", ".markdown"}
	latexExts = []string{".tex"}

	codeExts = []string{
		".html", ".xhtml", ".xht", ".mhtml", ".css", ".js", ".php", ".xml", ".json",
		".ts", ".tsx", ".c", ".cpp", ".java", ".py", ".rb", ".go", ".cs", ".swift",
		".vb", ".pl", ".r", ".jl", ".kt", ".dart", ".h", ".hpp",
	}
	configExts = []string{".xsd", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".log"}

	imageExts = []string{
		".jpg", ".jpeg", ".jpe", ".jfif", ".jps", ".png", ".bmp", ".gif", ".webp",
		".tif", ".tiff", ".heif", ".heic", ".avif", ".ico", ".dds", ".svg", ".ai",
		".eps", ".cdr", ".psd", ".sketch", ".xcf", ".cur", ".dng", ".raw", ".exr",
		".hdr", ".pam", ".pbm", ".pcd", ".pcx", ".pgm", ".pict", ".pnm", ".ppm",
		".ras", ".sgi", ".tga", ".xbm", ".xpm", ".xwd", ".picon",
	}

	audioExts = []string{".mp3", ".wav", ".aac", ".flac", ".ogg", ".oga", ".opus", ".m4a", ".aiff", ".wma", ".au"}
	videoExts = []string{".mp4", ".mov", ".avi", ".mkv", ".flv", ".webm", ".wmv", ".mts", ".m2ts", ".vob", ".3gp", ".mpeg", ".mpg", ".mpe"}

	model3dExts = []string{".obj", ".stl", ".glb", ".gltf", ".3ds"}
	fontExts    = []string{".otf", ".ttf", ".woff", ".woff2", ".eot"}
	emailExts   = []string{".msg", ".eml"}
	archiveExts = []string{".zip", ".rar", ".7z", ".tar", ".gz", ".tgz", ".bz2", ".tbz2", ".xz", ".txz", ".iso", ".dmg"}
	miscExts    = []string{".outlook", ".mht", ".pes", ".pfm", ".mpp"}
)

// IsOffice reports whether ext belongs to the office-suite converter group.
func IsOffice(ext string) bool { return inGroup(ext, officeDocExts, officeSheetExts, officeSlideExts) }

// IsMarkup reports whether ext is plain text or markdown (pandoc group).
func IsMarkup(ext string) bool { return inGroup(ext, textExts) }

// IsLaTeX reports whether ext is TeX source (pdflatex group).
func IsLaTeX(ext string) bool { return inGroup(ext, latexExts) }

// IsImage reports whether ext is a raster or vector image.
func IsImage(ext string) bool { return inGroup(ext, imageExts) }

// IsVideo reports whether ext is a video container.
func IsVideo(ext string) bool { return inGroup(ext, videoExts) }

// IsAudio reports whether ext is an audio format.
func IsAudio(ext string) bool { return inGroup(ext, audioExts) }

// IsFont reports whether ext is a font format.
func IsFont(ext string) bool { return inGroup(ext, fontExts) }

// IsPlainText reports whether files with this extension render as text in
// the viewer (text, code, config).
func IsPlainText(ext string) bool { return inGroup(ext, textExts, latexExts, codeExts, configExts) }

func inGroup(ext string, groups ...[]string) bool {
	ext = strings.ToLower(ext)
	for _, g := range groups {
		for _, e := range g {
			if e == ext {
				return true
			}
		}
	}
	return false
}

var byExtension = buildExtensionTable()

func buildExtensionTable() map[string]Category {
	m := make(map[string]Category, 160)
	add := func(cat Category, groups ...[]string) {
		for _, g := range groups {
			for _, e := range g {
				m[e] = cat
			}
		}
	}
	add(CategoryPDF, []string{".pdf"})
	add(CategoryOffice, officeDocExts, officeSheetExts, officeSlideExts)
	add(CategoryText, textExts, latexExts, codeExts, configExts)
	add(CategoryAudio, audioExts)
	add(CategoryVideo, videoExts)
	add(CategoryModel3D, model3dExts)
	add(CategoryFont, fontExts)
	add(CategoryEmail, emailExts)
	add(CategoryArchive, archiveExts)
	add(CategoryMisc, miscExts)
	// Image registered last so ".picon", listed under both image and
	// misc, resolves to image.
	add(CategoryImage, imageExts)
	return m
}

var byMIME = map[string]Category{
	"application/pdf": CategoryPDF,

	"application/msword": CategoryOffice,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": CategoryOffice,
	"application/vnd.oasis.opendocument.text":                                 CategoryOffice,
	"application/rtf":                                                         CategoryOffice,
	"application/vnd.ms-excel":                                                CategoryOffice,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       CategoryOffice,
	"application/vnd.oasis.opendocument.spreadsheet":                          CategoryOffice,
	"text/csv":                CategoryOffice,
	"application/vnd.ms-powerpoint": CategoryOffice,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": CategoryOffice,
	"application/vnd.oasis.opendocument.presentation":                           CategoryOffice,

	"text/plain":             CategoryText,
	"text/markdown":          CategoryText,
	"application/x-tex":      CategoryText,
	"text/html":              CategoryText,
	"application/xhtml+xml":  CategoryText,
	"application/xml":        CategoryText,
	"text/xml":               CategoryText,
	"application/json":       CategoryText,
	"text/css":               CategoryText,
	"application/javascript": CategoryText,
	"text/javascript":        CategoryText,
	"application/x-yaml":     CategoryText,
	"text/yaml":              CategoryText,
	"application/toml":       CategoryText,

	"image/jpeg":    CategoryImage,
	"image/png":     CategoryImage,
	"image/bmp":     CategoryImage,
	"image/gif":     CategoryImage,
	"image/webp":    CategoryImage,
	"image/tiff":    CategoryImage,
	"image/svg+xml": CategoryImage,
	"image/x-icon":  CategoryImage,

	"audio/mpeg": CategoryAudio,
	"audio/wav":  CategoryAudio,
	"audio/aac":  CategoryAudio,

	"video/mp4":        CategoryVideo,
	"video/x-matroska": CategoryVideo,
	"video/quicktime":  CategoryVideo,
	"video/webm":       CategoryVideo,

	"model/obj":         CategoryModel3D,
	"model/stl":         CategoryModel3D,
	"model/gltf+json":   CategoryModel3D,
	"model/gltf-binary": CategoryModel3D,

	"font/otf":                      CategoryFont,
	"font/ttf":                      CategoryFont,
	"font/woff":                     CategoryFont,
	"font/woff2":                    CategoryFont,
	"application/vnd.ms-fontobject": CategoryFont,

	"application/vnd.ms-outlook": CategoryEmail,
	"message/rfc822":             CategoryEmail,

	"application/zip":              CategoryArchive,
	"application/x-rar-compressed": CategoryArchive,
	"application/x-7z-compressed":  CategoryArchive,
	"application/x-tar":            CategoryArchive,
	"application/gzip":             CategoryArchive,

	"application/vnd.ms-project": CategoryMisc,
	"multipart/related":          CategoryMisc,
}
