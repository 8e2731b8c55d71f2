package api

import "strings"

// ouiPrefixes maps the first three MAC octets to a manufacturer. Collectors
// usually resolve this themselves; the table is the fallback for sightings
// that arrive without one.
var ouiPrefixes = map[string]string{
	"00:50:F2": "Microsoft", "00:0C:E7": "MediaTek", "00:E0:4C": "Realtek",
	"B0:7F:B9": "Netgear", "C4:E9:84": "TP-Link", "14:EB:B6": "TP-Link",
	"04:D9:F5": "ASUS", "1C:87:2C": "ASUS", "78:8A:20": "Ubiquiti",
	"F8:1E:DF": "Amazon", "F0:F0:A4": "Amazon", "30:FD:38": "Google",
	"A4:83:E7": "Apple", "3C:22:FB": "Apple", "DC:2B:61": "Samsung",
	"50:DC:E7": "Samsung", "88:B4:A6": "Huawei", "C8:47:8C": "Xiaomi",
	"A0:C5:89": "Motorola", "04:5D:4B": "Sony", "8C:85:90": "Intel",
	"A4:34:D9": "Intel", "20:02:AF": "Broadcom", "00:1A:2B": "Cisco",
	"F0:9F:C2": "Cisco", "48:5B:39": "Realtek", "9C:B6:D0": "HP",
	"B4:A5:EF": "AT&T", "E8:ED:F3": "ARRIS", "84:EA:ED": "Roku",
	"48:A6:B8": "Sonos", "44:07:0B": "Ring", "2C:AA:8E": "Wyze",
}

// LookupManufacturer resolves a MAC address's OUI prefix to a manufacturer
// name, or "Unknown".
func LookupManufacturer(mac string) string {
	if len(mac) < 8 {
		return "Unknown"
	}
	if m, ok := ouiPrefixes[strings.ToUpper(mac[:8])]; ok {
		return m
	}
	return "Unknown"
}
