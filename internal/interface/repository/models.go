package repository

// Models lists the GORM models of every table owned by the service, in
// migration order
func Models() []interface{} {
	return []interface{}{
		&ProviderInterfaces{},
		&Timezonelist{},
		&Routes{},
		&Flights{},
		&FlightDetails{},
		&FlightClasses{},
		&FareBreakdowns{},
		&FlightClassTaxes{},
		&FlightClassBaggages{},
		&FlightClassRules{},
	}
}
