package attendance

import (
	"strings"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
)

// nameColumnLen is the width of emp_name and location.
const nameColumnLen = 100

// EmployeeDirectory maps employee codes to their resolved identity for one cycle.
// It is built once per cycle and only read afterwards.
type EmployeeDirectory map[string]attendance.EmployeeInfo

// Lookup returns the resolved identity of code, with Unknown name and location for codes
// absent from the snapshot.
func (d EmployeeDirectory) Lookup(code string) attendance.EmployeeInfo {
	if info, ok := d[code]; ok {
		return info
	}
	return attendance.EmployeeInfo{EmpCode: code, Name: attendance.Unknown, Location: attendance.Unknown}
}

// ResolveEmployees builds the directory from the employee and area snapshots.
// An employee is located by the first area it lists.
func ResolveEmployees(employees []source.Employee, areas []source.Area) EmployeeDirectory {
	areaNames := make(map[string]string, len(areas))
	for _, a := range areas {
		key := a.Key().String()
		if key == "" {
			continue
		}
		areaNames[key] = firstNonEmpty(a.AreaName, a.Name)
	}

	dir := make(EmployeeDirectory, len(employees))
	for _, e := range employees {
		code := e.EmpCode.String()
		if code == "" {
			continue
		}

		location := attendance.Unknown
		if len(e.Areas) > 0 {
			if name, ok := areaNames[e.Areas[0].Key().String()]; ok {
				location = name
			}
		}

		dir[code] = attendance.EmployeeInfo{
			EmpCode:  code,
			Name:     truncate(firstNonEmpty(e.FirstName), nameColumnLen),
			Location: truncate(location, nameColumnLen),
		}
	}
	return dir
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return attendance.Unknown
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
