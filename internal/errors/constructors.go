package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *ProxyError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *ProxyError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *ProxyError {
	return New(CategoryValidation, SeverityFatal, "configuration validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Listener errors

func BindFailed(network, addr string, cause error) *ProxyError {
	return Wrap(cause, CategoryListener, SeverityFatal, "failed to bind listener").
		WithContext("network", network).
		WithContext("addr", addr)
}

// Ownership errors. These are retryable on the next relevant state
// transition, never fatal to the daemon.

func InterfaceNotFound(targetIP string, cause error) *ProxyError {
	return WrapRetryable(cause, CategoryNetconf, SeverityError, "no interface routes the target address").
		WithContext("target_ip", targetIP)
}

func AddressOpFailed(op, addr, iface string, cause error) *ProxyError {
	return WrapRetryable(cause, CategoryNetconf, SeverityError, "address operation failed").
		WithContext("op", op).
		WithContext("addr", addr).
		WithContext("interface", iface)
}

// WOL errors: fire-and-forget, never fatal.

func WakeSendFailed(broadcast string, cause error) *ProxyError {
	return WrapRetryable(cause, CategoryWOL, SeverityWarning, "magic packet send failed").
		WithContext("broadcast", broadcast)
}

func InvalidMAC(mac string) *ProxyError {
	return New(CategoryWOL, SeverityFatal, "invalid MAC address").
		WithContext("mac", mac)
}
