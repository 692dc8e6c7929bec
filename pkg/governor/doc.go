/*
Package governor limits repeated authentication failures per client.

LoginGovernor counts failures in a bounded LRU whose entries expire a week
after they were last written. A client with threshold or more recorded
failures is blocked until its entry expires or the process restarts.
ClientResolver decides which string identifies a client.
*/
package governor
