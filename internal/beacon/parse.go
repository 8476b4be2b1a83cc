// Package beacon builds network records from captured 802.11 management
// frames, as a passive alternative to running scan commands.
package beacon

import (
	"bytes"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"wifiwatch/internal/models"
)

// capPrivacy is the privacy bit of the capability information field.
const capPrivacy = 0x0010

var wpaOUI = []byte{0x00, 0x50, 0xf2, 0x01}

// ParsePacket converts a beacon or probe response into a record. It reports
// false for any other frame.
func ParsePacket(pkt gopacket.Packet) (models.NetworkRecord, bool) {
	dot11Layer := pkt.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return models.NetworkRecord{}, false
	}
	dot11 := dot11Layer.(*layers.Dot11)

	var capability uint16
	switch dot11.Type {
	case layers.Dot11TypeMgmtBeacon:
		b, ok := pkt.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon)
		if !ok {
			return models.NetworkRecord{}, false
		}
		capability = b.Flags
	case layers.Dot11TypeMgmtProbeResp:
		p, ok := pkt.Layer(layers.LayerTypeDot11MgmtProbeResp).(*layers.Dot11MgmtProbeResp)
		if !ok {
			return models.NetworkRecord{}, false
		}
		capability = p.Flags
	default:
		return models.NetworkRecord{}, false
	}

	if len(dot11.Address3) == 0 {
		return models.NetworkRecord{}, false
	}
	rec := models.NewNetworkRecord(strings.ToLower(dot11.Address3.String()))

	for _, l := range pkt.Layers() {
		ie, ok := l.(*layers.Dot11InformationElement)
		if !ok {
			continue
		}
		switch ie.ID {
		case layers.Dot11InformationElementIDSSID:
			if len(ie.Info) > 0 {
				rec.SSID = string(ie.Info)
			}
		case layers.Dot11InformationElementIDDSSet:
			if len(ie.Info) > 0 {
				rec.Channel = models.IntPtr(int(ie.Info[0]))
			}
		case layers.Dot11InformationElementIDRSNInfo:
			rec.EncryptionAny = true
			rec.EncryptionWEP = false
			rec.EncryptionWPA2 = true
		case layers.Dot11InformationElementIDVendor:
			if bytes.Equal(ie.OUI, wpaOUI) {
				rec.EncryptionAny = true
				rec.EncryptionWEP = false
				rec.EncryptionWPA = true
			}
		}
	}

	if capability&capPrivacy != 0 && !rec.EncryptionWPA && !rec.EncryptionWPA2 {
		rec.EncryptionAny = true
		rec.EncryptionWEP = true
	}

	if rt, ok := pkt.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap); ok && rt.Present.DBMAntennaSignal() {
		rec.Signal = models.IntPtr(int(rt.DBMAntennaSignal))
	}

	return rec, true
}
