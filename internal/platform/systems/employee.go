package systems

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultDepartment is used when an employee record carries no department.
const DefaultDepartment = "General"

// Employee is the normalized shape of an employee across all collaborators.
type Employee struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Department    string `json:"department"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
}

// NormalizeEmployee maps the differing employee shapes used by the HR system,
// the hospital and API callers onto Employee. An entry without any usable id
// yields an Employee with an empty ID.
func NormalizeEmployee(raw map[string]any) Employee {
	emp := Employee{
		ID:    IDString(first(raw, "id", "employeeId", "employee_id", "_id")),
		Email: str(first(raw, "email")),
	}

	switch {
	case str(raw["name"]) != "":
		emp.Name = str(raw["name"])
	case str(raw["employee_name"]) != "":
		emp.Name = str(raw["employee_name"])
	default:
		given := str(first(raw, "firstName", "first_name"))
		family := str(first(raw, "lastName", "last_name"))
		emp.Name = strings.TrimSpace(given + " " + family)
	}
	if emp.Name == "" {
		emp.Name = emp.Email
	}

	switch d := first(raw, "department", "departmentName", "department_name").(type) {
	case string:
		emp.Department = d
	case map[string]any:
		emp.Department = str(d["name"])
	}
	if emp.Department == "" {
		emp.Department = DefaultDepartment
	}

	emp.ScheduledTime = str(raw["scheduled_time"])
	return emp
}

// NormalizeEmployees normalizes a list and reports how many entries were
// dropped for lacking an id.
func NormalizeEmployees(raw []map[string]any) ([]Employee, int) {
	out := make([]Employee, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		emp := NormalizeEmployee(r)
		if emp.ID == "" {
			dropped++
			continue
		}
		out = append(out, emp)
	}
	return out, dropped
}

// IDString renders an identifier that may arrive as a JSON string or number.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

func first(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
