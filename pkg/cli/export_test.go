package cli

var PrintValidationReport = printValidationReport
