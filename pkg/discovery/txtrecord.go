package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeHeadUnitTXT creates TXT records for head unit discovery.
func EncodeHeadUnitTXT(info *HeadUnitInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyName] = info.Name
	txt[TXTKeyMake] = info.Make
	txt[TXTKeyModel] = info.Model
	txt[TXTKeyVersion] = info.Version

	// Optional fields
	if info.Year != "" {
		txt[TXTKeyYear] = info.Year
	}
	if info.Status != "" {
		txt[TXTKeyStatus] = info.Status
	}

	return txt
}

// DecodeHeadUnitTXT parses TXT records from head unit discovery.
// Port is not part of the TXT records; it comes from the SRV record.
func DecodeHeadUnitTXT(txt TXTRecordMap) (*HeadUnitInfo, error) {
	info := &HeadUnitInfo{}

	// Parse name (required)
	var ok bool
	info.Name, ok = txt[TXTKeyName]
	if !ok || info.Name == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyName)
	}

	// Parse make (required)
	info.Make, ok = txt[TXTKeyMake]
	if !ok || info.Make == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyMake)
	}

	// Parse model (required)
	info.Model, ok = txt[TXTKeyModel]
	if !ok || info.Model == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyModel)
	}

	// Parse version (required)
	info.Version, ok = txt[TXTKeyVersion]
	if !ok || info.Version == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if !isVersionString(info.Version) {
		return nil, fmt.Errorf("%w: invalid version %q", ErrInvalidTXTRecord, info.Version)
	}

	// Optional fields
	info.Year = txt[TXTKeyYear]
	info.Status = txt[TXTKeyStatus]

	return info, nil
}

// isVersionString reports whether s has the "major.minor" form.
func isVersionString(s string) bool {
	major, minor, found := strings.Cut(s, ".")
	if !found {
		return false
	}
	if _, err := strconv.ParseUint(major, 10, 16); err != nil {
		return false
	}
	if _, err := strconv.ParseUint(minor, 10, 16); err != nil {
		return false
	}
	return true
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
