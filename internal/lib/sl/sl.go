package sl

import "log/slog"

// Err wraps an error into a slog attribute.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Module tags log records with the emitting module name.
func Module(name string) slog.Attr {
	return slog.Attr{
		Key:   "module",
		Value: slog.StringValue(name),
	}
}

// Secret masks a sensitive value, keeping only the last four characters.
func Secret(key, value string) slog.Attr {
	masked := "****"
	if len(value) > 4 {
		masked = "****" + value[len(value)-4:]
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(masked),
	}
}

// Phone masks a customer phone number for log output, keeping the country
// prefix and the last two digits.
func Phone(raw string) slog.Attr {
	masked := raw
	if len(raw) > 6 {
		masked = raw[:4] + "****" + raw[len(raw)-2:]
	}
	return slog.Attr{
		Key:   "phone",
		Value: slog.StringValue(masked),
	}
}
