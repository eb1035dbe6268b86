package webhook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/payment-reconciler/internal/domain/payment"
)

// orderNotePattern matches "Ship: <First> <Last>, <Location>, <Pincode>".
var orderNotePattern = regexp.MustCompile(`Ship:\s*([^,]+),\s*([^,]+),\s*(\d+)`)

// ParseOrderNote is the last-resort shipping source. It only recovers
// name, location and pincode.
func ParseOrderNote(note string) (payment.ShippingInfo, bool) {
	m := orderNotePattern.FindStringSubmatch(note)
	if m == nil {
		return payment.ShippingInfo{}, false
	}

	first, last, _ := strings.Cut(strings.TrimSpace(m[1]), " ")
	return payment.ShippingInfo{
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Location:  strings.TrimSpace(m[2]),
		PinCode:   m[3],
	}, true
}

// FormatOrderNote renders shipping info in the form ParseOrderNote reads.
func FormatOrderNote(s payment.ShippingInfo) string {
	if s.IsZero() {
		return ""
	}
	return fmt.Sprintf("Ship: %s, %s, %s", s.FullName(), s.Location, s.PinCode)
}

var tagKeys = struct {
	firstName, lastName, address, location, mobile, landmark, pinCode []string
}{
	firstName: []string{"firstName", "first_name", "shipping_first_name"},
	lastName:  []string{"lastName", "last_name", "shipping_last_name"},
	address:   []string{"address", "shipping_address"},
	location:  []string{"location", "city", "shipping_location"},
	mobile:    []string{"mobileNumber", "mobile_number", "mobile", "shipping_phone"},
	landmark:  []string{"landmark", "shipping_landmark"},
	pinCode:   []string{"pinCode", "pincode", "pin_code", "shipping_pincode"},
}

func firstTag(tags map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

// ShippingFromTags reads structured shipping fields from order tags.
func ShippingFromTags(tags map[string]string) (payment.ShippingInfo, bool) {
	if len(tags) == 0 {
		return payment.ShippingInfo{}, false
	}
	s := payment.ShippingInfo{
		FirstName:    firstTag(tags, tagKeys.firstName),
		LastName:     firstTag(tags, tagKeys.lastName),
		Address:      firstTag(tags, tagKeys.address),
		Location:     firstTag(tags, tagKeys.location),
		MobileNumber: firstTag(tags, tagKeys.mobile),
		Landmark:     firstTag(tags, tagKeys.landmark),
		PinCode:      firstTag(tags, tagKeys.pinCode),
	}
	if s.FirstName == "" && s.Address == "" && s.PinCode == "" {
		return payment.ShippingInfo{}, false
	}
	return s, true
}

// TagsFromShipping is the inverse of ShippingFromTags, used when creating
// a gateway order so the webhook carries the address back.
func TagsFromShipping(s payment.ShippingInfo) map[string]string {
	tags := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			tags[k] = v
		}
	}
	put("first_name", s.FirstName)
	put("last_name", s.LastName)
	put("address", s.Address)
	put("location", s.Location)
	put("mobile_number", s.MobileNumber)
	put("landmark", s.Landmark)
	put("pincode", s.PinCode)
	if len(tags) == 0 {
		return nil
	}
	return tags
}
