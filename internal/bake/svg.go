package bake

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	dErrors "badgekeeper/pkg/domain-errors"
)

const (
	obSVGNamespace = "http://openbadges.org"

	assertionOpenTag  = "<openbadges:assertion"
	assertionCloseTag = "</openbadges:assertion>"
)

// bakeSVG injects an openbadges:assertion element directly after the opening
// svg tag, declaring the namespace on the root element when absent and
// replacing any assertion already present.
func bakeSVG(image, credentialJSON []byte) ([]byte, error) {
	doc := stripAssertion(string(image))

	tagStart := strings.Index(doc, "<svg")
	if tagStart < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no svg root element found")
	}
	tagEnd := closeOfTag(doc, tagStart)
	if tagEnd < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "unterminated svg root element")
	}

	tag := doc[tagStart : tagEnd+1]
	rest := doc[tagEnd+1:]

	if strings.HasSuffix(tag, "/>") {
		// Self-closing root: reopen it so the assertion has somewhere to live.
		tag = strings.TrimSuffix(tag, "/>") + ">"
		rest = "</svg>" + rest
	}
	if !strings.Contains(tag, "xmlns:openbadges") {
		tag = tag[:len(tag)-1] + fmt.Sprintf(` xmlns:openbadges=%q>`, obSVGNamespace)
	}

	var verifyAttr string
	if id := credentialID(credentialJSON); id != "" {
		verifyAttr = fmt.Sprintf(" verify=%q", id)
	}
	assertion := fmt.Sprintf("\n  %s%s><![CDATA[%s]]>%s",
		assertionOpenTag, verifyAttr, cdataEscape(string(credentialJSON)), assertionCloseTag)

	return []byte(doc[:tagStart] + tag + assertion + rest), nil
}

// stripAssertion removes an existing assertion element so baking replaces
// rather than duplicates.
func stripAssertion(doc string) string {
	start := strings.Index(doc, assertionOpenTag)
	if start < 0 {
		return doc
	}
	if end := strings.Index(doc[start:], assertionCloseTag); end >= 0 {
		return doc[:start] + doc[start+end+len(assertionCloseTag):]
	}
	if end := closeOfTag(doc, start); end >= 0 && strings.HasSuffix(doc[start:end+1], "/>") {
		return doc[:start] + doc[end+1:]
	}
	return doc
}

// closeOfTag finds the index of the '>' ending the tag opened at start,
// skipping '>' characters inside quoted attribute values.
func closeOfTag(doc string, start int) int {
	var quote byte
	for i := start; i < len(doc); i++ {
		c := doc[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}
	return -1
}

// cdataEscape splits any "]]>" in the payload across CDATA sections so the
// embedded JSON cannot terminate the block early.
func cdataEscape(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}

func credentialID(credentialJSON []byte) string {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(credentialJSON, &doc); err != nil {
		return ""
	}
	return doc.ID
}

// unbakeSVG scans the document for an openbadges assertion element and
// extracts its character data.
func unbakeSVG(image []byte) (*UnbakeResult, error) {
	dec := xml.NewDecoder(bytes.NewReader(image))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &UnbakeResult{}, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed SVG document")
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "assertion" {
			continue
		}
		// The namespace resolves to its URI when declared, and stays the bare
		// prefix when the producer omitted the declaration.
		if start.Name.Space != obSVGNamespace && start.Name.Space != "openbadges" {
			continue
		}

		res := &UnbakeResult{}
		for _, attr := range start.Attr {
			if attr.Name.Local == "verify" {
				res.VerifyURL = attr.Value
			}
		}

		var text bytes.Buffer
		depth := 1
		for depth > 0 {
			inner, err := dec.Token()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed SVG document")
			}
			switch t := inner.(type) {
			case xml.CharData:
				if depth == 1 {
					text.Write(t)
				}
			case xml.StartElement:
				depth++
			case xml.EndElement:
				depth--
			}
		}

		raw := bytes.TrimSpace(text.Bytes())
		if len(raw) == 0 {
			if res.VerifyURL != "" {
				res.Detail = "assertion element carries only a verify reference"
			} else {
				res.Detail = "assertion element is empty"
			}
			return res, nil
		}
		res.Found = true
		res.RawData = raw
		return res, nil
	}
}
