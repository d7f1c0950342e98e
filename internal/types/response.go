package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched page.
type Response struct {
	Request    *Request
	StatusCode int

	// Body is the decompressed page text.
	Body []byte

	// FinalURL is where the page was served from after redirects.
	FinalURL string

	FetchDuration time.Duration

	doc *goquery.Document
}

// NewResponse builds a Response for req.
func NewResponse(req *Request, status int, body []byte, finalURL string, took time.Duration) *Response {
	if finalURL == "" {
		finalURL = req.URLString()
	}
	return &Response{
		Request:       req,
		StatusCode:    status,
		Body:          body,
		FinalURL:      finalURL,
		FetchDuration: took,
	}
}

// NewHTMLResponse wraps a page that is already in memory, such as a fixture.
func NewHTMLResponse(req *Request, body []byte) *Response {
	return NewResponse(req, http.StatusOK, body, "", 0)
}

// Document parses Body on first use and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}

// URL returns the address the page was requested at.
func (r *Response) URL() string {
	if r.Request == nil {
		return r.FinalURL
	}
	return r.Request.URLString()
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
