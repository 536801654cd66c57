package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"golang.org/x/net/html/charset"
)

// Read reads an mzML (or indexedmzML) file
func Read(reader io.Reader) (MzML, error) {
	var mzML MzML

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	// Skip the indexedmzML wrapper and the index
	for {
		t, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return mzML, err
		}
		if se, ok := t.(xml.StartElement); ok && se.Name.Local == "mzML" {
			if err := d.DecodeElement(&mzML.content, &se); err != nil {
				return mzML, err
			}
		}
	}
	return mzML, mzML.buildIndex()
}

// arrayFormat describes how a binaryDataArray is encoded
type arrayFormat struct {
	compressed bool // zlib
	double     bool // 64-bit float
	mz         bool
	intensity  bool
}

// formatOf decodes the CV terms of a binaryDataArray. Without terms the
// data is uncompressed 32-bit float.
func formatOf(b *binaryDataArray) (arrayFormat, error) {
	var f arrayFormat
	for _, cv := range b.CvPar {
		switch cv.Accession {
		case cvZlib:
			f.compressed = true
		case cvFloat64:
			f.double = true
		case cvMzArray:
			f.mz = true
		case cvIntensityArray:
			f.intensity = true
		default:
			if numpressTerms[cv.Accession] {
				return f, fmt.Errorf("%w: %s (%s)", ErrUnsupportedCompression, cv.Accession, cv.Name)
			}
		}
	}
	return f, nil
}

func decodeArray(b *binaryDataArray, f arrayFormat) ([]float64, error) {
	data, err := base64.StdEncoding.DecodeString(b.Binary)
	if err != nil {
		return nil, err
	}
	if f.compressed {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer z.Close()
		if data, err = io.ReadAll(z); err != nil {
			return nil, err
		}
	}
	if f.double {
		v := make([]float64, len(data)/8)
		for i := range v {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return v, nil
	}
	v := make([]float64, len(data)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
	}
	return v, nil
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

func (f *MzML) spec(scanIndex int) (*spectrumElem, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	return &f.content.Run.SpectrumList.Spectrum[scanIndex], nil
}

// Profile returns the m/z and intensity arrays of a spectrum
func (f *MzML) Profile(scanIndex int) (mz, intensity []float64, err error) {
	s, err := f.spec(scanIndex)
	if err != nil {
		return nil, nil, err
	}
	for i := range s.BinaryDataArrayList.BinaryDataArray {
		b := &s.BinaryDataArrayList.BinaryDataArray[i]
		format, err := formatOf(b)
		if err != nil {
			return nil, nil, err
		}
		if !format.mz && !format.intensity {
			continue
		}
		v, err := decodeArray(b, format)
		if err != nil {
			return nil, nil, fmt.Errorf("spectrum %d: %w", scanIndex, err)
		}
		if format.mz {
			mz = v
		} else {
			intensity = v
		}
	}
	if len(mz) != len(intensity) {
		return nil, nil, fmt.Errorf("%w: spectrum %d has %d m/z and %d intensity values",
			ErrArrayLength, scanIndex, len(mz), len(intensity))
	}
	return mz, intensity, nil
}

// Centroid returns true if the spectrum contains centroided peaks
func (f *MzML) Centroid(scanIndex int) (bool, error) {
	s, err := f.spec(scanIndex)
	if err != nil {
		return false, err
	}
	for _, cv := range s.CvPar {
		if cv.Accession == cvCentroid {
			return true, nil
		}
	}
	return false, nil
}

// MSLevel returns the MS level of a spectrum, 1 if it is not specified
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	s, err := f.spec(scanIndex)
	if err != nil {
		return 0, err
	}
	for _, cv := range s.CvPar {
		if cv.Accession == cvMSLevel {
			return strconv.Atoi(cv.Value)
		}
	}
	return 1, nil
}

// RetentionTime returns the scan start time in seconds, or -1 if the
// spectrum has none
func (f *MzML) RetentionTime(scanIndex int) (float64, error) {
	s, err := f.spec(scanIndex)
	if err != nil {
		return 0, err
	}
	if s.ScanList == nil {
		return -1, nil
	}
	for _, sc := range s.ScanList.Scan {
		for _, cv := range sc.CvPar {
			if cv.Accession != cvScanStartTime {
				continue
			}
			rt, err := strconv.ParseFloat(cv.Value, 64)
			if cv.UnitAccession == unitMinute || cv.UnitAccession == unitMinuteObsolete {
				rt *= 60
			}
			return rt, err
		}
	}
	return -1, nil
}

// buildIndex fills the scan index <-> id maps
func (f *MzML) buildIndex() error {
	n := f.NumSpecs()
	f.index2id = make([]string, n)
	f.id2Index = make(map[string]int, n)
	for i, s := range f.content.Run.SpectrumList.Spectrum {
		if s.Index != i {
			return fmt.Errorf("%w: spectrum %q has index %d at position %d",
				ErrInvalidScanIndex, s.ID, s.Index, i)
		}
		f.index2id[i] = s.ID
		f.id2Index[s.ID] = i
	}
	return nil
}

// ScanIndex converts a spectrum id into an index
func (f *MzML) ScanIndex(scanID string) (int, error) {
	if index, ok := f.id2Index[scanID]; ok {
		return index, nil
	}
	return 0, ErrInvalidScanID
}

// ScanID converts a spectrum index into the id used in the file
func (f *MzML) ScanID(scanIndex int) (string, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		return f.index2id[scanIndex], nil
	}
	return "", ErrInvalidScanIndex
}
