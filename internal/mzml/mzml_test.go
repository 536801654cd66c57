package mzml

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const testDoc = `<?xml version="1.0" encoding="ISO-8859-1"?>
<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
  <cvList count="1"><cv id="MS" fullName="PSI-MS" version="4.1.0" URI="https://example.org/psi-ms.obo"/></cvList>
  <fileDescription><fileContent><cvParam cvRef="MS" accession="MS:1000579" name="MS1 spectrum"/></fileContent></fileDescription>
  <softwareList count="1"><software id="acq" version="1.0"/></softwareList>
  <instrumentConfigurationList count="1"><instrumentConfiguration id="IC1"/></instrumentConfigurationList>
  <dataProcessingList count="1"><dataProcessing id="conv"><processingMethod order="1" softwareRef="acq"/></dataProcessing></dataProcessingList>
  <run id="r1" defaultInstrumentConfigurationRef="IC1">
    <spectrumList count="2">
      <spectrum index="0" id="scan=1" defaultArrayLength="4">
        <cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="1"/>
        <cvParam cvRef="MS" accession="MS:1000128" name="profile spectrum"/>
        <scanList count="1"><scan><cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="1.5" unitCvRef="UO" unitAccession="UO:0000031" unitName="minute"/></scan></scanList>
        <binaryDataArrayList count="2">
          <binaryDataArray encodedLength="%d">
            <cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>
            <cvParam cvRef="MS" accession="MS:1000574" name="zlib compression"/>
            <cvParam cvRef="MS" accession="MS:1000514" name="m/z array"/>
            <binary>%s</binary>
          </binaryDataArray>
          <binaryDataArray encodedLength="%d">
            <cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>
            <cvParam cvRef="MS" accession="MS:1000574" name="zlib compression"/>
            <cvParam cvRef="MS" accession="MS:1000515" name="intensity array"/>
            <binary>%s</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
      <spectrum index="1" id="scan=2" defaultArrayLength="2">
        <cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="2"/>
        <cvParam cvRef="MS" accession="MS:1000127" name="centroid spectrum"/>
        <precursorList count="1"><precursor spectrumRef="scan=1"/></precursorList>
        <binaryDataArrayList count="2">
          <binaryDataArray encodedLength="%d">
            <cvParam cvRef="MS" accession="MS:1000521" name="32-bit float"/>
            <cvParam cvRef="MS" accession="MS:1000514" name="m/z array"/>
            <binary>%s</binary>
          </binaryDataArray>
          <binaryDataArray encodedLength="%d">
            <cvParam cvRef="MS" accession="MS:1000521" name="32-bit float"/>
            <cvParam cvRef="MS" accession="MS:1000515" name="intensity array"/>
            <binary>%s</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
<indexList count="0"/>
</indexedmzML>
`

var (
	testMz0     = []float64{400.25, 400.5, 400.75, 401}
	testIntens0 = []float64{10, 250.5, 12, 3}
	testMz1     = []float64{200.5, 300.25}
	testIntens1 = []float64{1000, 2000}
)

func testFile(t *testing.T) string {
	t.Helper()
	enc := func(v []float64, f arrayFormat) string {
		s, err := encodeArray(v, f)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	z64 := arrayFormat{compressed: true, double: true}
	a := enc(testMz0, z64)
	b := enc(testIntens0, z64)
	c := enc(testMz1, arrayFormat{})
	d := enc(testIntens1, arrayFormat{})
	return fmt.Sprintf(testDoc, len(a), a, len(b), b, len(c), c, len(d), d)
}

func readTestFile(t *testing.T, doc string) MzML {
	t.Helper()
	f, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	return f
}

func TestRead(t *testing.T) {
	f := readTestFile(t, testFile(t))
	if n := f.NumSpecs(); n != 2 {
		t.Fatalf("NumSpecs: %d, should be 2", n)
	}

	mz, intens, err := f.Profile(0)
	if err != nil {
		t.Fatalf("Profile: error return %v", err)
	}
	if diff := cmp.Diff(testMz0, mz); diff != "" {
		t.Errorf("Profile m/z mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(testIntens0, intens); diff != "" {
		t.Errorf("Profile intensity mismatch (-want +got):\n%s", diff)
	}
	// 32-bit values are exact for these numbers
	mz, _, err = f.Profile(1)
	if err != nil {
		t.Fatalf("Profile: error return %v", err)
	}
	if diff := cmp.Diff(testMz1, mz); diff != "" {
		t.Errorf("Profile m/z mismatch (-want +got):\n%s", diff)
	}

	level, err := f.MSLevel(1)
	if err != nil || level != 2 {
		t.Errorf("MSLevel: %d (%v), should be 2", level, err)
	}
	centroid, err := f.Centroid(0)
	if err != nil || centroid {
		t.Errorf("Centroid: %t (%v), should be false", centroid, err)
	}
	centroid, _ = f.Centroid(1)
	if !centroid {
		t.Errorf("Centroid: false, should be true")
	}
	rt, err := f.RetentionTime(0)
	if err != nil || rt != 90 {
		t.Errorf("RetentionTime: %v (%v), should be 90", rt, err)
	}
	rt, _ = f.RetentionTime(1)
	if rt != -1 {
		t.Errorf("RetentionTime: %v, should be -1", rt)
	}

	idx, err := f.ScanIndex("scan=2")
	if err != nil || idx != 1 {
		t.Errorf("ScanIndex: %d (%v), should be 1", idx, err)
	}
	if _, err := f.ScanIndex("scan=3"); err != ErrInvalidScanID {
		t.Errorf("ScanIndex: error return %v, should be ErrInvalidScanID", err)
	}
	id, err := f.ScanID(0)
	if err != nil || id != "scan=1" {
		t.Errorf("ScanID: %q (%v), should be scan=1", id, err)
	}
	for _, i := range []int{-1, 2} {
		if _, _, err := f.Profile(i); err != ErrInvalidScanIndex {
			t.Errorf("Profile(%d): error return %v, should be ErrInvalidScanIndex", i, err)
		}
		if _, err := f.MSLevel(i); err != ErrInvalidScanIndex {
			t.Errorf("MSLevel(%d): error return %v, should be ErrInvalidScanIndex", i, err)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	f := readTestFile(t, testFile(t))
	stripped := []float64{9.5, 0.25, 11, 3}
	if err := f.SetIntensities(0, stripped); err != nil {
		t.Fatalf("SetIntensities: error return %v", err)
	}
	if err := f.SetIntensities(0, []float64{1}); !errors.Is(err, ErrArrayLength) {
		t.Errorf("SetIntensities: error return %v, should be ErrArrayLength", err)
	}
	f.AppendSoftwareInfo("peakfind", "test")
	f.AppendDataProcessing(DataProcessing{
		ID:               "peak_subtraction",
		ProcessingMethod: []ProcessingMethod{{Order: 1, SoftwareRef: "peakfind"}},
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: error return %v", err)
	}
	g := readTestFile(t, buf.String())

	mz, intens, err := g.Profile(0)
	if err != nil {
		t.Fatalf("Profile: error return %v", err)
	}
	if diff := cmp.Diff(testMz0, mz); diff != "" {
		t.Errorf("m/z changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(stripped, intens); diff != "" {
		t.Errorf("intensities not written (-want +got):\n%s", diff)
	}
	_, intens, _ = g.Profile(1)
	if diff := cmp.Diff(testIntens1, intens, cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("untouched spectrum changed (-want +got):\n%s", diff)
	}

	sw := g.content.SoftwareList
	if sw.Count != 2 || sw.Software[1].ID != "peakfind" {
		t.Errorf("softwareList: %+v", sw)
	}
	dp := g.content.DataProcessingList
	if dp.Count != 2 || dp.DataProcessing[1].ID != "peak_subtraction" {
		t.Errorf("dataProcessingList: %+v", dp)
	}
	if len(g.content.Run.SpectrumList.Spectrum[1].PrecursorList) != 1 {
		t.Errorf("precursorList lost on write")
	}
}

func TestAppendWithoutLists(t *testing.T) {
	var f MzML
	f.AppendSoftwareInfo("peakfind", "1")
	f.AppendDataProcessing(DataProcessing{ID: "x"})
	if f.content.SoftwareList.Count != 1 || f.content.DataProcessingList.Count != 1 {
		t.Errorf("Expected lists to be created, got %+v %+v",
			f.content.SoftwareList, f.content.DataProcessingList)
	}
}

func TestNumpressRejected(t *testing.T) {
	doc := strings.Replace(testFile(t), `accession="MS:1000574" name="zlib compression"`,
		`accession="MS:1002312" name="MS-Numpress linear prediction compression"`, 1)
	f := readTestFile(t, doc)
	if _, _, err := f.Profile(0); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("Profile: error return %v, should be ErrUnsupportedCompression", err)
	}
}
