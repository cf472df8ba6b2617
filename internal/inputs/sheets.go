package inputs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	sheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/yourorg/skewsentry/internal/table"
)

var sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9\-_]+)`)
var gidPattern = regexp.MustCompile(`gid=(\d+)`)

// ParseGoogleSheetURL extracts the spreadsheet ID and (optional) gid from a
// Google Sheets URL. Ported from the teacher's gsheetutils.ParseGoogleSheetURL.
func ParseGoogleSheetURL(urlStr string) (sheetID string, gid string, ok bool) {
	u, err := url.Parse(urlStr)
	if err != nil {
		slog.Warn("inputs: invalid google sheets url", "url", urlStr, "error", err)
		return "", "", false
	}

	host := strings.ToLower(u.Host)
	if host != "docs.google.com" && host != "spreadsheets.google.com" {
		slog.Warn("inputs: not a google docs host", "host", u.Host)
		return "", "", false
	}

	matches := sheetIDPattern.FindStringSubmatch(u.Path)
	if len(matches) < 2 {
		slog.Warn("inputs: sheet id not found in url path", "path", u.Path)
		return "", "", false
	}
	sheetID = matches[1]

	if u.Fragment != "" {
		if m := gidPattern.FindStringSubmatch(u.Fragment); len(m) >= 2 {
			gid = m[1]
		}
	}
	if gid == "" {
		gid = u.Query().Get("gid")
	}
	return sheetID, gid, true
}

// LoadGoogleSheet fetches a sheet's values via the Sheets API using a service
// account credentials file, and loads them the same way LoadCSV/LoadXLSX do:
// first row is header, remaining rows inferred cell by cell.
func LoadGoogleSheet(ctx context.Context, credentialsPath, sheetURL, sheetRange string) (table.Table, error) {
	sheetID, _, ok := ParseGoogleSheetURL(sheetURL)
	if !ok {
		return table.Table{}, fmt.Errorf("inputs: could not parse google sheet url %q", sheetURL)
	}

	var svcOpts []option.ClientOption
	if credentialsPath != "" {
		svcOpts = append(svcOpts, option.WithCredentialsFile(credentialsPath))
	}
	svcOpts = append(svcOpts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	svc, err := sheets.NewService(ctx, svcOpts...)
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: creating sheets client: %w", err)
	}

	if sheetRange == "" {
		sheetRange = "A1:ZZ100000"
	}

	resp, err := svc.Spreadsheets.Values.Get(sheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: fetching sheet %s!%s: %w", sheetID, sheetRange, err)
	}
	if len(resp.Values) == 0 {
		return table.Table{}, fmt.Errorf("inputs: sheet %s range %s returned no rows", sheetID, sheetRange)
	}

	header := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		header[i] = fmt.Sprintf("%v", v)
	}

	records := make([][]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		rec := make([]string, len(header))
		for i := range header {
			if i < len(raw) {
				rec[i] = fmt.Sprintf("%v", raw[i])
			}
		}
		records = append(records, rec)
	}

	kinds := make([]table.Kind, len(header))
	for i := range header {
		kinds[i] = inferColumnKind(records, i)
	}

	rows := make([]table.Row, len(records))
	for ri, rec := range records {
		row := make(table.Row, len(header))
		for ci, name := range header {
			if rec[ci] == "" {
				row[name] = nil
				continue
			}
			row[name] = parseCell(rec[ci], kinds[ci])
		}
		rows[ri] = row
	}

	return table.FromOrderedRows(header, rows)
}
