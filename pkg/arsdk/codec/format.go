package codec

import (
	"fmt"
	"strings"
)

// Format renders a decoded command for logging: "name | arg=value | ...".
// Enum arguments with a bitfield table render as "A|B|UNKNOWN(bit)".
func Format(desc *CmdDesc, args []interface{}) string {
	var sb strings.Builder
	sb.WriteString(desc.Name)
	for i, ad := range desc.Args {
		if i >= len(args) {
			break
		}
		sb.WriteString(" | ")
		sb.WriteString(ad.Name)
		sb.WriteByte('=')
		sb.WriteString(formatValue(ad, args[i]))
	}
	return sb.String()
}

func formatValue(ad ArgDesc, v interface{}) string {
	if ad.Type == Enum && ad.EnumNames != nil {
		val, _ := v.(int32)
		if ad.Bitfield {
			return formatBitfield(ad.EnumNames, val)
		}
		if name, ok := ad.EnumNames[val]; ok {
			return name
		}
		return fmt.Sprintf("UNKNOWN(%d)", val)
	}
	return fmt.Sprintf("%v", v)
}

func formatBitfield(names map[int32]string, val int32) string {
	var parts []string
	var known int32
	// iterate in a stable order (ascending bit value) rather than Go's
	// randomized map order.
	for _, bit := range sortedBitValues(names) {
		if val&bit != 0 {
			parts = append(parts, names[bit])
			known |= bit
		}
	}
	if rem := val &^ known; rem != 0 {
		for shift := 0; shift < 32; shift++ {
			bit := int32(1) << uint(shift)
			if rem&bit != 0 {
				parts = append(parts, fmt.Sprintf("UNKNOWN(%d)", bit))
			}
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

func sortedBitValues(names map[int32]string) []int32 {
	vals := make([]int32, 0, len(names))
	for k := range names {
		vals = append(vals, k)
	}
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j-1] > vals[j]; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
	return vals
}
