// Package mzml reads profile spectra from mzML files and writes them back
// with modified intensities. Only the parts of the file that the peak
// finder uses are parsed; everything else is kept as raw XML so the
// output file stays complete.
package mzml

import (
	"encoding/xml"
	"errors"
)

// MzML wraps the contents of an mzML file
type MzML struct {
	content  mzMLContent
	index2id []string
	id2Index map[string]int
}

type mzMLContent struct {
	XMLName                     xml.Name            `xml:"http://psi.hupo.org/ms/mzml mzML"`
	CvList                      rawList             `xml:"cvList"`
	FileDescription             rawElement          `xml:"fileDescription"`
	ReferenceableParamGroupList *rawList            `xml:"referenceableParamGroupList"`
	SoftwareList                *softwareList       `xml:"softwareList"`
	InstrumentConfigurationList *rawList            `xml:"instrumentConfigurationList"`
	DataProcessingList          *dataProcessingList `xml:"dataProcessingList"`
	Run                         run                 `xml:"run"`
}

// mzMLContentWrite adds the namespace attributes that encoding/xml
// drops when reading
type mzMLContentWrite struct {
	XMLName                     xml.Name            `xml:"http://psi.hupo.org/ms/mzml mzML"`
	SchemaLocation              string              `xml:"xsi:schemaLocation,attr"`
	Version                     string              `xml:"version,attr"`
	XSI                         string              `xml:"xmlns:xsi,attr"`
	CvList                      rawList             `xml:"cvList"`
	FileDescription             rawElement          `xml:"fileDescription"`
	ReferenceableParamGroupList *rawList            `xml:"referenceableParamGroupList,omitempty"`
	SoftwareList                *softwareList       `xml:"softwareList"`
	InstrumentConfigurationList *rawList            `xml:"instrumentConfigurationList"`
	DataProcessingList          *dataProcessingList `xml:"dataProcessingList"`
	Run                         run                 `xml:"run"`
}

// rawList is a counted list element whose children are kept verbatim
type rawList struct {
	Count int    `xml:"count,attr,omitempty"`
	Inner []byte `xml:",innerxml"`
}

type rawElement struct {
	Inner []byte `xml:",innerxml"`
}

type softwareList struct {
	Count    int        `xml:"count,attr,omitempty"`
	Software []software `xml:"software"`
}

type software struct {
	ID      string    `xml:"id,attr,omitempty"`
	Version string    `xml:"version,attr,omitempty"`
	CvPar   []CVParam `xml:"cvParam,omitempty"`
}

type dataProcessingList struct {
	Count          int              `xml:"count,attr,omitempty"`
	DataProcessing []DataProcessing `xml:"dataProcessing,omitempty"`
}

// DataProcessing is the dataProcessing element of mzML
type DataProcessing struct {
	ID               string             `xml:"id,attr,omitempty"`
	ProcessingMethod []ProcessingMethod `xml:"processingMethod"`
}

// ProcessingMethod is the processingMethod element of mzML
type ProcessingMethod struct {
	Order       int         `xml:"order,attr"`
	SoftwareRef string      `xml:"softwareRef,attr,omitempty"`
	CvPar       []CVParam   `xml:"cvParam,omitempty"`
	UserPar     []UserParam `xml:"userParam,omitempty"`
}

type run struct {
	ID                                string               `xml:"id,attr,omitempty"`
	DefaultInstrumentConfigurationRef string               `xml:"defaultInstrumentConfigurationRef,attr,omitempty"`
	StartTimeStamp                    string               `xml:"startTimeStamp,attr,omitempty"`
	DefaultSourceFileRef              string               `xml:"defaultSourceFileRef,attr,omitempty"`
	SpectrumList                      spectrumList         `xml:"spectrumList"`
	ChromatogramList                  *rawChromatogramList `xml:"chromatogramList,omitempty"`
}

type spectrumList struct {
	Count                    int            `xml:"count,attr"`
	DefaultDataProcessingRef string         `xml:"defaultDataProcessingRef,attr,omitempty"`
	Spectrum                 []spectrumElem `xml:"spectrum"`
}

type rawChromatogramList struct {
	Count                    int    `xml:"count,attr,omitempty"`
	DefaultDataProcessingRef string `xml:"defaultDataProcessingRef,attr,omitempty"`
	Inner                    []byte `xml:",innerxml"`
}

type spectrumElem struct {
	Index              int         `xml:"index,attr"`
	ID                 string      `xml:"id,attr"`
	DefaultArrayLength int         `xml:"defaultArrayLength,attr"`
	CvPar              []CVParam   `xml:"cvParam,omitempty"`
	UserPar            []UserParam `xml:"userParam,omitempty"`
	ScanList           *scanList   `xml:"scanList,omitempty"`
	// A slice so that spectra without precursors don't get an empty tag
	PrecursorList       []rawList           `xml:"precursorList,omitempty"`
	ProductList         []rawList           `xml:"productList,omitempty"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type scanList struct {
	Count int       `xml:"count,attr,omitempty"`
	CvPar []CVParam `xml:"cvParam,omitempty"`
	Scan  []scan    `xml:"scan"`
}

type scan struct {
	InstrumentConfigurationRef string      `xml:"instrumentConfigurationRef,attr,omitempty"`
	CvPar                      []CVParam   `xml:"cvParam,omitempty"`
	UserPar                    []UserParam `xml:"userParam,omitempty"`
	ScanWindowList             []rawList   `xml:"scanWindowList,omitempty"`
}

type binaryDataArrayList struct {
	Count           int               `xml:"count,attr,omitempty"`
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr,omitempty"`
	ArrayLength   int       `xml:"arrayLength,attr,omitempty"`
	CvPar         []CVParam `xml:"cvParam,omitempty"`
	Binary        string    `xml:"binary"`
}

// CVParam is an mzML controlled vocabulary term
type CVParam struct {
	CvRef         string `xml:"cvRef,attr,omitempty"`
	Accession     string `xml:"accession,attr,omitempty"`
	Name          string `xml:"name,attr,omitempty"`
	Value         string `xml:"value,attr,omitempty"`
	UnitCvRef     string `xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
	UnitName      string `xml:"unitName,attr,omitempty"`
}

// UserParam is an mzML user defined parameter
type UserParam struct {
	Name  string `xml:"name,attr,omitempty"`
	Value string `xml:"value,attr,omitempty"`
	Type  string `xml:"type,attr,omitempty"`
}

// CV terms used by the reader
const (
	cvMSLevel          = "MS:1000511"
	cvCentroid         = "MS:1000127"
	cvScanStartTime    = "MS:1000016"
	cvZlib             = "MS:1000574"
	cvMzArray          = "MS:1000514"
	cvIntensityArray   = "MS:1000515"
	cvFloat64          = "MS:1000523"
	unitMinute         = "UO:0000031"
	unitMinuteObsolete = "MS:1000038"
)

// MS-Numpress compression CV terms, not supported
var numpressTerms = map[string]bool{
	"MS:1002312": true,
	"MS:1002313": true,
	"MS:1002314": true,
	"MS:1002746": true,
	"MS:1002747": true,
	"MS:1002748": true,
}

var (
	// ErrInvalidScanID means an invalid scan id is supplied
	ErrInvalidScanID = errors.New("MzML: invalid scan id")
	// ErrInvalidScanIndex means an invalid scan index is supplied
	ErrInvalidScanIndex = errors.New("MzML: invalid scan index")
	// ErrUnsupportedCompression means a binary array uses MS-Numpress
	ErrUnsupportedCompression = errors.New("MzML: unsupported binary compression")
	// ErrArrayLength means the m/z and intensity arrays differ in length
	ErrArrayLength = errors.New("MzML: binary array length mismatch")
)
