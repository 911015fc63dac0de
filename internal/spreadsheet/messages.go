package spreadsheet

// MessageRow is one line of a self-contained bulk file: who to write to and
// what to send them.
type MessageRow struct {
	Phone   string
	Name    string
	Message string
}

var (
	messagePhoneColumns = []string{"telefono", "phone", "numero", "celular"}
	messageTextColumns  = []string{"mensaje", "message", "texto"}
	messageNameColumns  = []string{"nombre", "name"}
)

// MessageRows extracts phone, message and name from every record. When the
// phone or message columns are missing, the first and second non-empty cells
// of the record are used instead. Records without any phone are dropped.
func (s *Sheet) MessageRows() []MessageRow {
	var out []MessageRow
	for i, row := range s.Maps() {
		cells := nonEmpty(s.Records[i])

		phone := lookup(row, messagePhoneColumns)
		if phone == "" && len(cells) > 0 {
			phone = cells[0]
		}
		if phone == "" {
			continue
		}
		message := lookup(row, messageTextColumns)
		if message == "" && len(cells) > 1 {
			message = cells[1]
		}
		out = append(out, MessageRow{
			Phone:   phone,
			Name:    lookup(row, messageNameColumns),
			Message: message,
		})
	}
	return out
}

func lookup(row map[string]string, columns []string) string {
	for _, col := range columns {
		if v := row[col]; v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(record []string) []string {
	var out []string
	for _, v := range record {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
