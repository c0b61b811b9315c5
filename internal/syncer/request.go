package syncer

import (
	"fmt"
	"strings"
	"time"
)

// DataType is a data category on the mirror. Each category lives in its own
// directory subtree and names its files with a category-specific suffix.
type DataType string

const (
	Raw      DataType = "raw"
	Dat      DataType = "dat"
	Fit      DataType = "fit"
	FitACF25 DataType = "fitacf25"
	FitACF30 DataType = "fitacf30"
	Map      DataType = "map"
	Grid     DataType = "grid"
	Summary  DataType = "summary"
)

// DataTypes lists every recognized category.
func DataTypes() []DataType {
	return []DataType{Raw, Dat, Fit, FitACF25, FitACF30, Map, Grid, Summary}
}

// DataTypeNames joins the recognized categories for help and error text.
func DataTypeNames() string {
	types := DataTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Valid reports whether t is a recognized category.
func (t DataType) Valid() bool {
	switch t {
	case Raw, Dat, Fit, FitACF25, FitACF30, Map, Grid, Summary:
		return true
	}
	return false
}

// Suffix is the file-name suffix the category's files carry on the mirror.
// Summary files have no fixed suffix.
func (t DataType) Suffix() string {
	switch t {
	case Raw:
		return "rawacf.bz2"
	case Dat:
		return "dat.bz2"
	case Fit, FitACF25, FitACF30:
		return "fitacf.gz"
	case Map:
		return "map"
	case Grid:
		return "grid"
	}
	return ""
}

// Request describes one synchronization: which year/month/category subtree
// to list on the mirror, how to narrow the listing, and where the files
// land on the local endpoint.
type Request struct {
	Year     int
	Month    int
	Station  string // station fragment, e.g. "sas"; "*" or empty matches all
	Pattern  string // file-name fragment, e.g. "20200101"; "*" or empty matches all
	DataType DataType
	LocalDir string // destination directory on the local endpoint
}

// Validate rejects months outside [1,12], year/month combinations in the
// future measured against now, and unrecognized data types. The local
// directory is not checked for existence: it lives on the destination
// endpoint, which may be a different machine, so the transfer service is
// the one to reject a bad path.
func (r Request) Validate(now time.Time) error {
	curYear, curMonth := now.Year(), int(now.Month())
	if r.Year > curYear {
		return fmt.Errorf("%w: sync year %d is in the future", ErrInvalidArgument, r.Year)
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: sync month %d invalid", ErrInvalidArgument, r.Month)
	}
	if r.Year == curYear && r.Month > curMonth {
		return fmt.Errorf("%w: sync month %02d is in the future", ErrInvalidArgument, r.Month)
	}
	if !r.DataType.Valid() {
		return fmt.Errorf("%w: unknown data type %q (expected one of %s)", ErrInvalidArgument, string(r.DataType), DataTypeNames())
	}
	if r.LocalDir == "" {
		return fmt.Errorf("%w: local directory must not be empty", ErrInvalidArgument)
	}
	return nil
}

// RemotePath is the mirror directory holding the requested slice of data,
// with the month zero-padded the way the mirror lays out its tree. The
// trailing slash matters to the listing endpoint.
func (r Request) RemotePath(root string) string {
	return fmt.Sprintf("%s/%s/%d/%02d/", strings.TrimSuffix(root, "/"), r.DataType, r.Year, r.Month)
}

// Filter derives the server-evaluated listing filter: each non-wildcard
// fragment in order, extended by a wildcard, closed by the category suffix.
// With the default match-all fragments and the raw category this comes out
// as "name:~*rawacf.bz2".
func (r Request) Filter() string {
	var b strings.Builder
	b.WriteString("name:~*")
	for _, fragment := range []string{r.Pattern, r.Station} {
		if fragment == "" || fragment == "*" {
			continue
		}
		b.WriteString(fragment)
		b.WriteString("*")
	}
	b.WriteString(r.DataType.Suffix())
	return b.String()
}
