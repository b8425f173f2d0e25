package storage

import (
	"encoding/json"
	"errors"

	"neurite/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp returns the current version header for new records.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func EncodeMorphology(m model.MorphologySummary) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeMorphology(data []byte) (model.MorphologySummary, error) {
	var summary model.MorphologySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.MorphologySummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.MorphologySummary{}, err
	}
	return summary, nil
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeTraces(traces []model.TraceRecord) ([]byte, error) {
	return json.Marshal(traces)
}

func DecodeTraces(data []byte) ([]model.TraceRecord, error) {
	var traces []model.TraceRecord
	if err := json.Unmarshal(data, &traces); err != nil {
		return nil, err
	}
	for _, tr := range traces {
		if err := checkVersion(tr.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return traces, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion > CurrentSchemaVersion || v.CodecVersion > CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
