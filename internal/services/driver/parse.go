package driver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/models"
)

// Pure HTML parsing. The driver fetches page HTML over the DevTools
// protocol; everything below is deterministic and unit-tested offline.

// ParseJobLinks extracts job cards from a search result page
func ParseJobLinks(html, pageURL string) ([]models.JobLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	seen := make(map[string]struct{})
	var links []models.JobLink
	doc.Find(selJobCard).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref).String()

		key := common.ExtractJobKey(absolute)
		if key == "" {
			if jk, ok := sel.Attr("data-jk"); ok {
				key = jk
			}
		}
		dedupKey := key
		if dedupKey == "" {
			dedupKey = absolute
		}
		if _, dup := seen[dedupKey]; dup {
			return
		}
		seen[dedupKey] = struct{}{}

		title := strings.TrimSpace(sel.Find("span").First().Text())
		if title == "" {
			title = strings.TrimSpace(sel.Text())
		}

		links = append(links, models.JobLink{
			URL:     absolute,
			Title:   title,
			Company: strings.TrimSpace(sel.AttrOr("data-company", "")),
		})
	})

	return links, nil
}

// ParseTotalCount reads the estimated result count off a search page.
// The count is advisory; pagination terminates on empty pages regardless.
func ParseTotalCount(html string) models.CountEstimate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.CountEstimate{}
	}

	text := strings.TrimSpace(doc.Find(selJobCount).First().Text())
	if text == "" {
		return models.CountEstimate{}
	}

	// Count text reads like "1,234 jobs"; take the first number
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if r == ',' || r == '.' {
			continue
		}
		if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return models.CountEstimate{}
	}

	total, err := strconv.Atoi(digits.String())
	if err != nil {
		return models.CountEstimate{}
	}
	return models.CountEstimate{Total: total, Found: true}
}

// ParseJobPosting extracts posting details from a job page. The description
// is converted to markdown so prompts stay compact.
func ParseJobPosting(html, pageURL string) (models.JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.JobPosting{}, fmt.Errorf("failed to parse job page: %w", err)
	}

	posting := models.JobPosting{
		Key:      common.ExtractJobKey(pageURL),
		URL:      pageURL,
		Title:    strings.TrimSpace(doc.Find(selJobTitle).First().Text()),
		Company:  strings.TrimSpace(doc.Find(selCompanyName).First().Text()),
		Location: strings.TrimSpace(doc.Find(selJobLocation).First().Text()),
	}

	if posting.Title == "" {
		return models.JobPosting{}, fmt.Errorf("job page has no title")
	}

	desc := doc.Find(selDescription).First()
	if desc.Length() > 0 {
		converter := md.NewConverter(pageURL, true, nil)
		markdown := converter.Convert(desc)
		posting.Description = strings.TrimSpace(markdown)
	}

	return posting, nil
}

// ParseWizardState reads the current application wizard step out of its HTML
func ParseWizardState(html string) (models.WizardState, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.WizardState{}, fmt.Errorf("failed to parse wizard: %w", err)
	}

	state := models.WizardState{
		CanAdvance: doc.Find(selContinueBtn).Length() > 0 || doc.Find(selSubmitBtn).Length() > 0,
		IsReview:   doc.Find(selReviewPane).Length() > 0,
	}

	doc.Find(selQuestionItem).Each(func(_ int, item *goquery.Selection) {
		q, ok := parseQuestion(item)
		if ok {
			state.Questions = append(state.Questions, q)
		}
	})

	return state, nil
}

// parseQuestion extracts one form field from a question container.
// Grouped inputs carry their question in a legend; the labels belong to the
// individual options.
func parseQuestion(item *goquery.Selection) (models.WizardQuestion, bool) {
	label := strings.TrimSpace(item.Find("legend").First().Text())
	if label == "" {
		label = strings.TrimSpace(item.Find("label").First().Text())
	}
	if label == "" {
		return models.WizardQuestion{}, false
	}

	q := models.WizardQuestion{Label: label}
	q.Required = item.Find("[required], [aria-required='true']").Length() > 0

	switch {
	case item.Find("select").Length() > 0:
		q.Type = models.InputTypeSelect
		item.Find("select option").Each(func(_ int, opt *goquery.Selection) {
			text := strings.TrimSpace(opt.Text())
			if text == "" || opt.AttrOr("value", "") == "" {
				return
			}
			q.Options = append(q.Options, text)
		})
	case item.Find("input[type='radio']").Length() > 0:
		q.Type = models.InputTypeRadio
		item.Find("input[type='radio']").Each(func(_ int, input *goquery.Selection) {
			text := radioLabel(item, input)
			if text != "" {
				q.Options = append(q.Options, text)
			}
		})
	case item.Find("input[type='checkbox']").Length() > 0:
		q.Type = models.InputTypeCheckbox
		item.Find("input[type='checkbox']").Each(func(_ int, input *goquery.Selection) {
			text := radioLabel(item, input)
			if text != "" {
				q.Options = append(q.Options, text)
			}
		})
	case item.Find("textarea").Length() > 0:
		q.Type = models.InputTypeTextarea
	case item.Find("input[type='number']").Length() > 0:
		q.Type = models.InputTypeNumber
	case item.Find("input[type='file']").Length() > 0:
		q.Type = models.InputTypeFile
	case item.Find("input").Length() > 0:
		q.Type = models.InputTypeText
	default:
		return models.WizardQuestion{}, false
	}

	return q, true
}

// radioLabel finds the display text for a radio or checkbox input
func radioLabel(item, input *goquery.Selection) string {
	if id, ok := input.Attr("id"); ok && id != "" {
		label := item.Find("label[for='" + id + "']")
		if label.Length() > 0 {
			return strings.TrimSpace(label.Text())
		}
	}
	// Input nested inside its label
	parent := input.ParentsFiltered("label").First()
	if parent.Length() > 0 {
		return strings.TrimSpace(parent.Text())
	}
	if v, ok := input.Attr("value"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
