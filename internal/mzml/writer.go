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
)

// Write writes the mzML file. The indexedmzML wrapper of the input is
// not reproduced.
func (f *MzML) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent(``, `  `)
	c := mzMLContentWrite{
		XMLName:                     f.content.XMLName,
		SchemaLocation:              "http://psi.hupo.org/ms/mzml http://psidev.info/files/ms/mzML/xsd/mzML1.1.0.xsd",
		Version:                     "1.1.0",
		XSI:                         "http://www.w3.org/2001/XMLSchema-instance",
		CvList:                      f.content.CvList,
		FileDescription:             f.content.FileDescription,
		ReferenceableParamGroupList: f.content.ReferenceableParamGroupList,
		SoftwareList:                f.content.SoftwareList,
		InstrumentConfigurationList: f.content.InstrumentConfigurationList,
		DataProcessingList:          f.content.DataProcessingList,
		Run:                         f.content.Run,
	}
	if err := enc.Encode(&c); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// AppendSoftwareInfo adds a software entry to the softwareList
func (f *MzML) AppendSoftwareInfo(id string, version string) {
	if f.content.SoftwareList == nil {
		f.content.SoftwareList = &softwareList{}
	}
	l := f.content.SoftwareList
	l.Software = append(l.Software, software{ID: id, Version: version})
	l.Count = len(l.Software)
}

// AppendDataProcessing adds a dataProcessing entry
func (f *MzML) AppendDataProcessing(proc DataProcessing) {
	if f.content.DataProcessingList == nil {
		f.content.DataProcessingList = &dataProcessingList{}
	}
	l := f.content.DataProcessingList
	l.DataProcessing = append(l.DataProcessing, proc)
	l.Count = len(l.DataProcessing)
}

// SetIntensities replaces the intensity array of a spectrum, keeping its
// compression and precision
func (f *MzML) SetIntensities(scanIndex int, intensity []float64) error {
	s, err := f.spec(scanIndex)
	if err != nil {
		return err
	}
	if len(intensity) != s.DefaultArrayLength {
		return fmt.Errorf("%w: spectrum %d has %d channels, got %d intensities",
			ErrArrayLength, scanIndex, s.DefaultArrayLength, len(intensity))
	}
	for i := range s.BinaryDataArrayList.BinaryDataArray {
		b := &s.BinaryDataArrayList.BinaryDataArray[i]
		format, err := formatOf(b)
		if err != nil {
			return err
		}
		if !format.intensity {
			continue
		}
		enc, err := encodeArray(intensity, format)
		if err != nil {
			return err
		}
		b.Binary = enc
		b.EncodedLength = len(enc)
	}
	return nil
}

// encodeArray is the inverse of decodeArray
func encodeArray(v []float64, f arrayFormat) (string, error) {
	var raw []byte
	if f.double {
		raw = make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(x))
		}
	} else {
		raw = make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(x)))
		}
	}
	if f.compressed {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		if _, err := z.Write(raw); err != nil {
			return "", err
		}
		// Close flushes the checksum, the stream is incomplete without it
		if err := z.Close(); err != nil {
			return "", err
		}
		raw = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
