package schema

// rosterFields are the seventeen columns of the provider roster template.
var rosterFields = []Field{
	{Key: "transaction_type", Column: "Transaction Type (Add/Update/Term)", Hint: "Add | Update | Term"},
	{Key: "transaction_attribute", Column: "Transaction Attribute", Hint: "string"},
	{Key: "effective_date", Column: "Effective Date", Hint: "MM/DD/YYYY"},
	{Key: "term_date", Column: "Term Date", Hint: "MM/DD/YYYY"},
	{Key: "term_reason", Column: "Term Reason", Hint: "string"},
	{Key: "provider_name", Column: "Provider Name", Hint: "string, only the name, not the designation"},
	{Key: "provider_npi", Column: "Provider NPI", Hint: "digits"},
	{Key: "provider_specialty", Column: "Provider Specialty", Hint: "string"},
	{Key: "state_license", Column: "State License", Hint: "string"},
	{Key: "organization_name", Column: "Organization Name", Hint: "string"},
	{Key: "tin", Column: "TIN", Hint: "digits (the Tax ID number)"},
	{Key: "group_npi", Column: "Group NPI", Hint: "digits (the NPI of the default provider)"},
	{Key: "complete_address", Column: "Complete Address", Hint: "string"},
	{Key: "phone_number", Column: "Phone Number", Hint: "digits"},
	{Key: "fax_number", Column: "Fax Number", Hint: "digits"},
	{Key: "ppg_id", Column: "PPG ID", Hint: "string (single or comma-separated)"},
	{Key: "line_of_business", Column: "Line Of Business (Medicare/Commercial/Medical)", Hint: "Medicare | Commercial | Medical, only these strings"},
}

var roster = MustNew(rosterFields...)

// Roster returns the provider roster schema.
func Roster() *Schema { return roster }
