// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import (
	"strconv"
	"strings"
)

// Class describes how a record type participates in event grouping.
type Class uint8

const (
	// ClassMulti records belong to a kernel event that may span several
	// records and is closed by a terminator or by idle expiry.
	ClassMulti Class = iota

	// ClassStandalone records are complete events on their own
	// (user-space messages, daemon lifecycle, anomaly reports).
	ClassStandalone

	// ClassTerminator records close a multi-record event.
	ClassTerminator
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassStandalone:
		return "standalone"
	case ClassTerminator:
		return "terminator"
	default:
		return "multi"
	}
}

// RecordType is a kernel audit record category. Types missing from the
// static table are still valid: Known reports false and Name carries the
// raw string from the log.
type RecordType struct {
	Name  string
	Code  uint16
	Class Class
	known bool
}

// Known reports whether the type was found in the lookup table.
func (t RecordType) Known() bool { return t.known }

// String returns the record type name as it appears in audit logs.
func (t RecordType) String() string {
	if t.Name == "" {
		return "UNKNOWN"
	}
	return t.Name
}

// Is reports whether t has the given name.
func (t RecordType) Is(name string) bool { return t.Name == name }

// MarshalText implements encoding.TextMarshaler.
func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(t.Name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RecordType) UnmarshalText(b []byte) error {
	*t = LookupType(string(b))
	return nil
}

// Record type names referenced by the pipeline.
const (
	TypeSyscall   = "SYSCALL"
	TypePath      = "PATH"
	TypeCwd       = "CWD"
	TypeExecve    = "EXECVE"
	TypeProctitle = "PROCTITLE"
	TypeSockaddr  = "SOCKADDR"
	TypeEOE       = "EOE"
	TypeUserStart = "USER_START"
)

type typeEntry struct {
	code uint16
	name string

	// alone marks kernel records that are logged without a trailing EOE.
	alone bool
}

// typeTable lists record types from linux/audit.h and libaudit. Classes are
// assigned by range in init: 1100-1299 and 2100-2999 originate in user space
// and 1700-1799 are kernel anomaly reports, all single-record events. Other
// kernel types are multi-record unless the entry sets alone.
var typeTable = []typeEntry{
	{1006, "LOGIN", false},

	{1100, "USER_AUTH", false}, {1101, "USER_ACCT", false}, {1102, "USER_MGMT", false}, {1103, "CRED_ACQ", false},
	{1104, "CRED_DISP", false}, {1105, "USER_START", false}, {1106, "USER_END", false}, {1107, "USER_AVC", false},
	{1108, "USER_CHAUTHTOK", false}, {1109, "USER_ERR", false}, {1110, "CRED_REFR", false}, {1111, "USYS_CONFIG", false},
	{1112, "USER_LOGIN", false}, {1113, "USER_LOGOUT", false}, {1114, "ADD_USER", false}, {1115, "DEL_USER", false},
	{1116, "ADD_GROUP", false}, {1117, "DEL_GROUP", false}, {1118, "DAC_CHECK", false}, {1119, "CHGRP_ID", false},
	{1120, "TEST", false}, {1121, "TRUSTED_APP", false}, {1122, "USER_SELINUX_ERR", false}, {1123, "USER_CMD", false},
	{1124, "USER_TTY", false}, {1125, "CHUSER_ID", false}, {1126, "GRP_AUTH", false}, {1127, "SYSTEM_BOOT", false},
	{1128, "SYSTEM_SHUTDOWN", false}, {1129, "SYSTEM_RUNLEVEL", false}, {1130, "SERVICE_START", false},
	{1131, "SERVICE_STOP", false}, {1132, "GRP_MGMT", false}, {1133, "GRP_CHAUTHTOK", false}, {1134, "MAC_CHECK", false},
	{1135, "ACCT_LOCK", false}, {1136, "ACCT_UNLOCK", false}, {1137, "USER_DEVICE", false}, {1138, "SOFTWARE_UPDATE", false},

	{1200, "DAEMON_START", false}, {1201, "DAEMON_END", false}, {1202, "DAEMON_ABORT", false}, {1203, "DAEMON_CONFIG", false},
	{1204, "DAEMON_RECONFIG", false}, {1205, "DAEMON_ROTATE", false}, {1206, "DAEMON_RESUME", false},
	{1207, "DAEMON_ACCEPT", false}, {1208, "DAEMON_CLOSE", false}, {1209, "DAEMON_ERR", false},

	{1300, "SYSCALL", false}, {1302, "PATH", false}, {1303, "IPC", false}, {1304, "SOCKETCALL", false},
	{1305, "CONFIG_CHANGE", true}, {1306, "SOCKADDR", false}, {1307, "CWD", false}, {1309, "EXECVE", false},
	{1311, "IPC_SET_PERM", false}, {1312, "MQ_OPEN", false}, {1313, "MQ_SENDRECV", false}, {1314, "MQ_NOTIFY", false},
	{1315, "MQ_GETSETATTR", false}, {1316, "KERNEL_OTHER", false}, {1317, "FD_PAIR", false}, {1318, "OBJ_PID", false},
	{1319, "TTY", false}, {1320, "EOE", false}, {1321, "BPRM_FCAPS", false}, {1322, "CAPSET", false}, {1323, "MMAP", false},
	{1324, "NETFILTER_PKT", false}, {1325, "NETFILTER_CFG", true}, {1326, "SECCOMP", true}, {1327, "PROCTITLE", false},
	{1328, "FEATURE_CHANGE", false}, {1329, "REPLACE", false}, {1330, "KERN_MODULE", false}, {1331, "FANOTIFY", false},
	{1332, "TIME_INJOFFSET", false}, {1333, "TIME_ADJNTPVAL", false}, {1334, "BPF", false}, {1335, "EVENT_LISTENER", false},
	{1336, "URINGOP", false}, {1337, "OPENAT2", false}, {1338, "DM_CTRL", false}, {1339, "DM_EVENT", false},

	{1400, "AVC", false}, {1401, "SELINUX_ERR", false}, {1402, "AVC_PATH", false}, {1403, "MAC_POLICY_LOAD", false},
	{1404, "MAC_STATUS", false}, {1405, "MAC_CONFIG_CHANGE", false}, {1406, "MAC_UNLBL_ALLOW", false},
	{1407, "MAC_CIPSOV4_ADD", false}, {1408, "MAC_CIPSOV4_DEL", false}, {1409, "MAC_MAP_ADD", false},
	{1410, "MAC_MAP_DEL", false}, {1411, "MAC_IPSEC_ADDSA", false}, {1412, "MAC_IPSEC_DELSA", false},
	{1413, "MAC_IPSEC_ADDSPD", false}, {1414, "MAC_IPSEC_DELSPD", false}, {1415, "MAC_IPSEC_EVENT", false},
	{1416, "MAC_UNLBL_STCADD", false}, {1417, "MAC_UNLBL_STCDEL", false}, {1418, "MAC_CALIPSO_ADD", false},
	{1419, "MAC_CALIPSO_DEL", false}, {1420, "MAC_TASK_CONTEXTS", false}, {1421, "MAC_OBJ_CONTEXTS", false},

	{1700, "ANOM_PROMISCUOUS", false}, {1701, "ANOM_ABEND", false}, {1702, "ANOM_LINK", false}, {1703, "ANOM_CREAT", false},

	{1800, "INTEGRITY_DATA", false}, {1801, "INTEGRITY_METADATA", false}, {1802, "INTEGRITY_STATUS", false},
	{1803, "INTEGRITY_HASH", false}, {1804, "INTEGRITY_PCR", false}, {1805, "INTEGRITY_RULE", false},
	{1806, "INTEGRITY_EVM_XATTR", false}, {1807, "INTEGRITY_POLICY_RULE", false},

	{2100, "ANOM_LOGIN_FAILURES", false}, {2101, "ANOM_LOGIN_TIME", false}, {2102, "ANOM_LOGIN_SESSIONS", false},
	{2103, "ANOM_LOGIN_ACCT", false}, {2104, "ANOM_LOGIN_LOCATION", false}, {2105, "ANOM_MAX_DAC", false},
	{2106, "ANOM_MAX_MAC", false}, {2107, "ANOM_AMTU_FAIL", false}, {2108, "ANOM_RBAC_FAIL", false},
	{2109, "ANOM_RBAC_INTEGRITY_FAIL", false}, {2110, "ANOM_CRYPTO_FAIL", false}, {2111, "ANOM_ACCESS_FS", false},
	{2112, "ANOM_EXEC", false}, {2113, "ANOM_MK_EXEC", false}, {2114, "ANOM_ADD_ACCT", false}, {2115, "ANOM_DEL_ACCT", false},
	{2116, "ANOM_MOD_ACCT", false}, {2117, "ANOM_ROOT_TRANS", false}, {2118, "ANOM_LOGIN_SERVICE", false},
	{2119, "ANOM_LOGIN_ROOT", false}, {2120, "ANOM_ORIGIN_FAILURES", false}, {2121, "ANOM_SESSION", false},

	{2200, "RESP_ANOMALY", false}, {2201, "RESP_ALERT", false}, {2202, "RESP_KILL_PROC", false}, {2203, "RESP_TERM_ACCESS", false},
	{2204, "RESP_ACCT_REMOTE", false}, {2205, "RESP_ACCT_LOCK_TIMED", false}, {2206, "RESP_ACCT_UNLOCK_TIMED", false},
	{2207, "RESP_ACCT_LOCK", false}, {2208, "RESP_TERM_LOCK", false}, {2209, "RESP_SEBOOL", false}, {2210, "RESP_EXEC", false},
	{2211, "RESP_SINGLE", false}, {2212, "RESP_HALT", false}, {2213, "RESP_ORIGIN_BLOCK", false},
	{2214, "RESP_ORIGIN_BLOCK_TIMED", false}, {2215, "RESP_ORIGIN_UNBLOCK_TIMED", false},

	{2300, "USER_ROLE_CHANGE", false}, {2301, "ROLE_ASSIGN", false}, {2302, "ROLE_REMOVE", false}, {2303, "LABEL_OVERRIDE", false},
	{2304, "LABEL_LEVEL_CHANGE", false}, {2305, "USER_LABELED_EXPORT", false}, {2306, "USER_UNLABELED_EXPORT", false},
	{2307, "DEV_ALLOC", false}, {2308, "DEV_DEALLOC", false}, {2309, "FS_RELABEL", false}, {2310, "USER_MAC_POLICY_LOAD", false},
	{2311, "ROLE_MODIFY", false}, {2312, "USER_MAC_CONFIG_CHANGE", false}, {2313, "USER_MAC_STATUS", false},

	{2400, "CRYPTO_TEST_USER", false}, {2401, "CRYPTO_PARAM_CHANGE_USER", false}, {2402, "CRYPTO_LOGIN", false},
	{2403, "CRYPTO_LOGOUT", false}, {2404, "CRYPTO_KEY_USER", false}, {2405, "CRYPTO_FAILURE_USER", false},
	{2406, "CRYPTO_REPLAY_USER", false}, {2407, "CRYPTO_SESSION", false}, {2408, "CRYPTO_IKE_SA", false},
	{2409, "CRYPTO_IPSEC_SA", false},

	{2500, "VIRT_CONTROL", false}, {2501, "VIRT_RESOURCE", false}, {2502, "VIRT_MACHINE_ID", false},
	{2503, "VIRT_INTEGRITY_CHECK", false}, {2504, "VIRT_CREATE", false}, {2505, "VIRT_DESTROY", false},
	{2506, "VIRT_MIGRATE_IN", false}, {2507, "VIRT_MIGRATE_OUT", false},
}

var (
	typesByName = make(map[string]RecordType, len(typeTable))
	typesByCode = make(map[uint16]RecordType, len(typeTable))
)

//nolint:gochecknoinits // builds the immutable lookup maps from typeTable
func init() {
	for _, e := range typeTable {
		class := classFor(e.code)
		if e.alone {
			class = ClassStandalone
		}
		t := RecordType{Name: e.name, Code: e.code, Class: class, known: true}
		typesByName[e.name] = t
		typesByCode[e.code] = t
	}
}

func classFor(code uint16) Class {
	switch {
	case code == 1320:
		return ClassTerminator
	case code >= 1100 && code < 1300, code >= 1700 && code < 1800, code >= 2100 && code < 3000:
		return ClassStandalone
	default:
		return ClassMulti
	}
}

// LookupType resolves a record type name. Names missing from the table
// yield an unknown RecordType carrying the raw name; auditd's
// "UNKNOWN[n]" spelling is mapped back to its numeric code when known.
func LookupType(name string) RecordType {
	if t, ok := typesByName[name]; ok {
		return t
	}
	if code, ok := unknownCode(name); ok {
		if t, ok := typesByCode[code]; ok {
			return t
		}
		return RecordType{Name: name, Code: code, Class: classFor(code)}
	}
	return RecordType{Name: name}
}

// TypeForCode resolves a netlink message type. Unknown codes are named
// UNKNOWN[code], matching auditd's log output.
func TypeForCode(code uint16) RecordType {
	if t, ok := typesByCode[code]; ok {
		return t
	}
	return RecordType{
		Name:  "UNKNOWN[" + strconv.FormatUint(uint64(code), 10) + "]",
		Code:  code,
		Class: classFor(code),
	}
}

func unknownCode(name string) (uint16, bool) {
	rest, ok := strings.CutPrefix(name, "UNKNOWN[")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// KnownTypes returns the number of entries in the lookup table.
func KnownTypes() int { return len(typesByName) }
