package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Service renders tailored application documents to PDF
type Service struct {
	config *common.PersonalizationConfig
	logger arbor.ILogger

	mu       sync.Mutex
	rendered map[string]string // sanitized title -> cv path, reused across same-title jobs
}

// NewService creates a new PDF service
func NewService(config *common.PersonalizationConfig, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		logger:   logger,
		rendered: make(map[string]string),
	}
}

// CachedDocuments reports whether documents for this title already exist,
// either rendered this run or left on disk by an earlier one. A hit lets the
// caller skip the tailoring call entirely.
func (s *Service) CachedDocuments(jobTitle string) (cvPath, coverPath string, ok bool) {
	slug := common.SanitizeTitle(jobTitle)
	if slug == "" {
		slug = "untitled"
	}

	cvPath = filepath.Join(s.config.OutputDir, "cv_"+slug+".pdf")
	coverPath = filepath.Join(s.config.OutputDir, "cover_"+slug+".pdf")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, hit := s.rendered[slug]; hit {
		return cvPath, coverPath, true
	}

	if _, err := os.Stat(cvPath); err != nil {
		return "", "", false
	}
	if _, err := os.Stat(coverPath); err != nil {
		return "", "", false
	}
	s.rendered[slug] = cvPath
	return cvPath, coverPath, true
}

// RenderDocuments writes the tailored CV and cover letter as PDFs and returns
// their paths. Jobs sharing a sanitized title reuse the already rendered CV;
// files already on disk are not rewritten.
func (s *Service) RenderDocuments(jobTitle string, content models.TailoredContent) (cvPath, coverPath string, err error) {
	slug := common.SanitizeTitle(jobTitle)
	if slug == "" {
		slug = "untitled"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.config.OutputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	cvPath = filepath.Join(s.config.OutputDir, "cv_"+slug+".pdf")
	coverPath = filepath.Join(s.config.OutputDir, "cover_"+slug+".pdf")

	if cached, ok := s.rendered[slug]; ok {
		s.logger.Debug().Str("title", jobTitle).Msg("Reusing rendered documents for title")
		return cached, coverPath, nil
	}

	if err := s.renderFile(cvPath, content.CV); err != nil {
		return "", "", fmt.Errorf("failed to render CV: %w", err)
	}
	if err := s.renderFile(coverPath, content.CoverLetter); err != nil {
		return "", "", fmt.Errorf("failed to render cover letter: %w", err)
	}

	s.rendered[slug] = cvPath
	s.logger.Info().Str("cv", cvPath).Str("cover", coverPath).Msg("Rendered application documents")
	return cvPath, coverPath, nil
}

// renderFile converts markdown to PDF on disk, skipping existing files
func (s *Service) renderFile(path, markdown string) error {
	if _, err := os.Stat(path); err == nil {
		s.logger.Debug().Str("path", path).Msg("PDF already exists, keeping it")
		return nil
	}

	data, err := ConvertMarkdownToPDF(markdown, s.logger)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
func ConvertMarkdownToPDF(markdown string, logger arbor.ILogger) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	md := goldmark.New()
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{
		pdf:    pdf,
		source: source,
		font:   "Arial",
		size:   10,
	}
	if err := renderer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF generated")
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		em := n.(*ast.Emphasis)
		if em.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(3)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(3)
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(6)
		size := 15.0 - float64(n.Level)
		if size < 10 {
			size = 10
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(6)
		r.updateFont()
	}
	return ast.WalkContinue, nil
}
