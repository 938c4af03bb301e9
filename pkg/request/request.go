// Package request builds the query strings sent to the /i endpoint.
//
// Every function here is pure. Base and location values are inserted
// verbatim; payload values (JSON documents) are query-escaped.
package request

import (
	"strconv"
	"strings"
	"time"
)

// Endpoint is the ingestion path every request targets.
const Endpoint = "/i"

// BaseRequestAt returns the request prefix shared by every request, using
// ts (milliseconds since the epoch) as the timestamp.
func BaseRequestAt(appKey, deviceID, sdkVersion, sdkName string, ts int64) string {
	var b strings.Builder
	b.WriteString(Endpoint)
	b.WriteString("?app_key=")
	b.WriteString(appKey)
	b.WriteString("&device_id=")
	b.WriteString(deviceID)
	b.WriteString("&timestamp=")
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteString("&sdk_version=")
	b.WriteString(sdkVersion)
	b.WriteString("&sdk_name=")
	b.WriteString(sdkName)
	return b.String()
}

// BaseRequest is BaseRequestAt stamped with the current time.
func BaseRequest(appKey, deviceID, sdkVersion, sdkName string) string {
	return BaseRequestAt(appKey, deviceID, sdkVersion, sdkName, time.Now().UnixMilli())
}

// Location holds the optional location fields. A nil field is left out of
// the request; a pointer to an empty string is sent as an empty value.
type Location struct {
	Location    *string `json:"location,omitempty" cbor:"location,omitempty"`
	IP          *string `json:"ip,omitempty" cbor:"ip,omitempty"`
	CountryCode *string `json:"country_code,omitempty" cbor:"country_code,omitempty"`
	City        *string `json:"city,omitempty" cbor:"city,omitempty"`
}

// IsZero reports whether no field is set.
func (l Location) IsZero() bool {
	return l.Location == nil && l.IP == nil && l.CountryCode == nil && l.City == nil
}

// AppendLocation appends the set fields of loc to base in the order
// location, ip, country_code, city. When no field is set it returns
// ("", false): there is no location request to send.
func AppendLocation(base string, loc Location) (string, bool) {
	if loc.IsZero() {
		return "", false
	}

	var b strings.Builder
	b.WriteString(base)
	appendOptional(&b, "location", loc.Location)
	appendOptional(&b, "ip", loc.IP)
	appendOptional(&b, "country_code", loc.CountryCode)
	appendOptional(&b, "city", loc.City)
	return b.String(), true
}

func appendOptional(b *strings.Builder, name string, value *string) {
	if value == nil {
		return
	}
	b.WriteByte('&')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(*value)
}
