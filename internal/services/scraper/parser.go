// -----------------------------------------------------------------------
// Fragrance Page Parser - extracts structured data from a rendered
// fragrance page: name/brand, accord bars, notes pyramid, vote bars
// and the description block as markdown.
// -----------------------------------------------------------------------

package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/scentlab/essentia/internal/models"
)

var widthRe = regexp.MustCompile(`width:\s*([\d.]+)%`)

// longevityVotes and sillageVotes are the vote-bar vocabularies; the
// dominant bar of each group becomes the record's value.
var (
	longevityVotes = map[string]bool{
		"very weak": true, "weak": true, "moderate": true,
		"long lasting": true, "eternal": true,
	}
	sillageVotes = map[string]bool{
		"intimate": true, "strong": true, "enormous": true,
	}
)

// parsePercentage extracts the width percentage from a style attribute
func parsePercentage(style string) float64 {
	m := widthRe.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFragrance parses a rendered fragrance page into a record.
// Missing sections degrade to zero values; only a page without a
// product name is an error.
func parseFragrance(pageURL, html string) (*models.FragranceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	record := &models.FragranceRecord{URL: pageURL}

	h1 := doc.Find("h1[itemprop=name]").First()
	if h1.Length() == 0 {
		return nil, fmt.Errorf("no fragrance name on page %s", pageURL)
	}
	record.Brand = strings.TrimSpace(h1.Find("span[itemprop=name]").First().Text())
	record.Name, record.Gender = splitNameGender(ownText(h1))

	if v, err := strconv.ParseFloat(strings.TrimSpace(doc.Find("span[itemprop=ratingValue]").First().Text()), 64); err == nil {
		record.RatingValue = v
	}
	countText := strings.ReplaceAll(strings.TrimSpace(doc.Find("span[itemprop=ratingCount]").First().Text()), ",", "")
	if n, err := strconv.Atoi(countText); err == nil {
		record.RatingCount = n
	}

	doc.Find("div.accord-bar").Each(func(_ int, bar *goquery.Selection) {
		name := strings.TrimSpace(bar.Text())
		if name == "" {
			return
		}
		style, _ := bar.Attr("style")
		record.MainAccords = append(record.MainAccords, models.Accord{
			Name:       name,
			Percentage: parsePercentage(style),
		})
	})

	record.Notes = parseNotes(doc)
	record.Longevity, record.Sillage = parseVoteBars(doc)
	record.Description = parseDescription(doc, pageURL)

	return record, nil
}

// ownText returns the element's direct text content, skipping child
// elements such as the nested brand span.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			b.WriteString(node.Text())
		}
	})
	return strings.TrimSpace(b.String())
}

// splitNameGender separates the "for women and men" style suffix from
// the product name.
func splitNameGender(text string) (string, string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "for women and men"):
		return trimSuffixFold(text, "for women and men"), "unisex"
	case strings.Contains(lower, "for women"):
		return trimSuffixFold(text, "for women"), "women"
	case strings.Contains(lower, "for men"):
		return trimSuffixFold(text, "for men"), "men"
	}
	return text, ""
}

func trimSuffixFold(text, suffix string) string {
	idx := strings.Index(strings.ToLower(text), suffix)
	if idx < 0 {
		return text
	}
	return strings.TrimSpace(text[:idx])
}

// parseNotes reads the top/middle/base pyramid. Each section header is
// followed by a container of note links.
func parseNotes(doc *goquery.Document) models.NotePyramid {
	var pyramid models.NotePyramid

	doc.Find("#pyramid h4, #pyramid h3, h4").Each(func(_ int, header *goquery.Selection) {
		title := strings.ToLower(strings.TrimSpace(header.Text()))
		var target *[]string
		switch {
		case strings.Contains(title, "top notes"):
			target = &pyramid.Top
		case strings.Contains(title, "middle notes"), strings.Contains(title, "heart notes"):
			target = &pyramid.Middle
		case strings.Contains(title, "base notes"):
			target = &pyramid.Base
		default:
			return
		}
		if len(*target) > 0 {
			return
		}
		*target = noteNames(header.Next())
	})

	return pyramid
}

func noteNames(container *goquery.Selection) []string {
	var notes []string
	seen := make(map[string]bool)

	add := func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		notes = append(notes, name)
	}

	links := container.Find("a")
	if links.Length() > 0 {
		links.Each(add)
	} else {
		container.Find("span").Each(add)
	}
	return notes
}

// parseVoteBars picks the dominant longevity and sillage vote bars
func parseVoteBars(doc *goquery.Document) (longevity, sillage string) {
	var bestLongevity, bestSillage float64

	doc.Find("span.vote-button-legend").Each(func(_ int, legend *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(legend.Text()))

		item := legend.Parent()
		bar := item.Find(`div[style*="width"]`).First()
		if bar.Length() == 0 {
			bar = item.Parent().Find(`div[style*="width"]`).First()
		}
		style, _ := bar.Attr("style")
		pct := parsePercentage(style)

		switch {
		case longevityVotes[name] && pct > bestLongevity:
			bestLongevity = pct
			longevity = name
		case sillageVotes[name] && pct > bestSillage:
			bestSillage = pct
			sillage = name
		}
	})
	return longevity, sillage
}

// parseDescription converts the description block to markdown
func parseDescription(doc *goquery.Document, pageURL string) string {
	desc := doc.Find("div[itemprop=description]").First()
	if desc.Length() == 0 {
		return ""
	}

	html, err := desc.Html()
	if err != nil {
		return strings.TrimSpace(desc.Text())
	}

	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}

	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(desc.Text())
	}
	return strings.TrimSpace(markdown)
}
