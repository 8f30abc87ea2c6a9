package utils

// ToStringSlice keeps the non-empty strings of slice, dropping other values
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok && s != "" {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
