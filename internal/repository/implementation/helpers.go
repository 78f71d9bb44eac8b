package implementation

import "gorm.io/datatypes"

func toJSONStringArray(values []string) datatypes.JSONSlice[string] {
	if values == nil {
		values = []string{}
	}
	return datatypes.NewJSONSlice(values)
}
