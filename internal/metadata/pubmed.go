// Package metadata fetches bibliographic information about an article from
// the PubMed E-utilities. It is a collaborator of the QA engine: lookups
// enrich the output tables but a failed lookup never blocks answering.
package metadata

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"articleqa/pkg/logger"
)

// DefaultBaseURL is the NCBI E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// ErrNotFound is returned when no PubMed record matches the DOI. It is a
// normal outcome for unindexed articles, not a failure.
var ErrNotFound = errors.New("no PubMed record found for DOI")

// Article is the bibliographic summary of one PubMed record.
type Article struct {
	PMID            string
	Title           string
	Journal         string
	PubDate         string
	Authors         []string
	Language        string
	Country         string
	PublicationType string
	Affiliations    []string
}

// Client queries the PubMed E-utilities.
type Client struct {
	http    *http.Client
	baseURL string
	log     *logger.Logger
}

// NewClient creates a PubMed client. baseURL defaults to the NCBI endpoint
// when empty.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     log,
	}
}

// LookupDOI resolves a DOI to its PubMed record: esearch finds the PMID,
// esummary provides title, journal, authors and publication date, and efetch
// adds language, country, publication type and author affiliations.
func (c *Client) LookupDOI(ctx context.Context, doi string) (*Article, error) {
	pmid, err := c.searchPMID(ctx, doi)
	if err != nil {
		return nil, err
	}
	c.log.Info(fmt.Sprintf("Resolved DOI %s to PMID %s", doi, pmid))

	article := &Article{PMID: pmid}
	if err := c.fillSummary(ctx, article); err != nil {
		return nil, err
	}
	if err := c.fillDetails(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

type esearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDs     []string `xml:"IdList>Id"`
}

func (c *Client) searchPMID(ctx context.Context, doi string) (string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {doi + "[DOI]"},
		"retmode": {"xml"},
	}

	var result esearchResult
	if err := c.get(ctx, "/esearch.fcgi", params, &result); err != nil {
		return "", err
	}
	if len(result.IDs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, doi)
	}
	return result.IDs[0], nil
}

type esummaryItem struct {
	Name  string         `xml:"Name,attr"`
	Value string         `xml:",chardata"`
	Items []esummaryItem `xml:"Item"`
}

type esummaryResult struct {
	XMLName xml.Name `xml:"eSummaryResult"`
	DocSum  struct {
		Items []esummaryItem `xml:"Item"`
	} `xml:"DocSum"`
}

func (c *Client) fillSummary(ctx context.Context, article *Article) error {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {article.PMID},
		"retmode": {"xml"},
	}

	var result esummaryResult
	if err := c.get(ctx, "/esummary.fcgi", params, &result); err != nil {
		return err
	}

	for _, item := range result.DocSum.Items {
		switch item.Name {
		case "Title":
			article.Title = item.Value
		case "Source":
			article.Journal = item.Value
		case "PubDate":
			article.PubDate = item.Value
		case "AuthorList":
			for _, author := range item.Items {
				article.Authors = append(article.Authors, author.Value)
			}
		}
	}
	return nil
}

type efetchResult struct {
	XMLName  xml.Name `xml:"PubmedArticleSet"`
	Articles []struct {
		Language         string   `xml:"MedlineCitation>Article>Language"`
		Country          string   `xml:"MedlineCitation>MedlineJournalInfo>Country"`
		PublicationTypes []string `xml:"MedlineCitation>Article>PublicationTypeList>PublicationType"`
		Affiliations     []string `xml:"MedlineCitation>Article>AuthorList>Author>AffiliationInfo>Affiliation"`
	} `xml:"PubmedArticle"`
}

func (c *Client) fillDetails(ctx context.Context, article *Article) error {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {article.PMID},
		"retmode": {"xml"},
	}

	var result efetchResult
	if err := c.get(ctx, "/efetch.fcgi", params, &result); err != nil {
		return err
	}
	if len(result.Articles) == 0 {
		return nil
	}

	detail := result.Articles[0]
	article.Language = detail.Language
	article.Country = detail.Country
	if len(detail.PublicationTypes) > 0 {
		article.PublicationType = detail.PublicationTypes[0]
	}

	seen := make(map[string]bool)
	for _, affiliation := range detail.Affiliations {
		if !seen[affiliation] {
			seen[affiliation] = true
			article.Affiliations = append(article.Affiliations, affiliation)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pubmed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pubmed request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read pubmed response: %w", err)
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse pubmed response: %w", err)
	}
	return nil
}
